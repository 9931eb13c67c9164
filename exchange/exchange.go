package exchange

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/golang/glog"
	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/errortypes"
	"github.com/prebid/auction-core/events"
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/metrics"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/auction-core/prebid_cache_client"
	"github.com/prebid/auction-core/stored_requests"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/openrtb/v20/openrtb3"
	"golang.org/x/sync/errgroup"
)

// BidResponseCreator turns the responses of the bidders called for a request into the OpenRTB response.
// Implementations must be threadsafe, and will be shared across many goroutines.
type BidResponseCreator interface {
	// Create resolves the winners, caches the bids and builds the response.
	// The returned error is only non-nil when a bid references an imp missing from the request.
	Create(ctx context.Context, r *AuctionRequest, bidderResponses []*entities.BidderResponse) (*openrtb2.BidResponse, error)
}

// AuctionRequest holds the bid request and account the bidder responses are resolved against.
type AuctionRequest struct {
	BidRequest         *openrtb2.BidRequest
	ResolvedBidRequest json.RawMessage
	Account            config.Account
	StartTime          time.Time
	// Warnings were collected while the request was processed. They're reported under the prebid bucket.
	Warnings []error
	// DebugHttpCalls holds the traces of other labelled sources, echoed in ext.debug.httpcalls.
	DebugHttpCalls map[string][]*openrtb_ext.ExtHttpCall
}

type bidResponseCreator struct {
	me                    metrics.MetricsEngine
	cache                 *cacheCoordinator
	storedVideo           stored_requests.VideoStoredDataFetcher
	storedVideoTimeout    time.Duration
	eventsService         *events.Service
	bidIDGenerator        BidIDGenerator
	requestBidIDGenerator BidIDGenerator
	auctionCfg            config.Auction
	deprecatedBidders     openrtb_ext.DeprecatedBidders
	extCacheScheme        string
	extCacheHost          string
	extCachePath          string
}

// NewBidResponseCreator wires the collaborators used to build responses. cacher and storedVideo may be nil.
func NewBidResponseCreator(cfg *config.Configuration, cacher prebid_cache_client.BidCacher, storedVideo stored_requests.VideoStoredDataFetcher, eventsService *events.Service, me metrics.MetricsEngine) BidResponseCreator {
	c := &bidResponseCreator{
		me:                    me,
		cache:                 &cacheCoordinator{cacher: cacher, events: cfg.Events},
		storedVideo:           storedVideo,
		storedVideoTimeout:    time.Duration(cfg.StoredVideo.TimeoutMS) * time.Millisecond,
		eventsService:         eventsService,
		bidIDGenerator:        &bidIDGenerator{cfg.GenerateBidID},
		requestBidIDGenerator: &bidIDGenerator{cfg.GenerateRequestBidID},
		auctionCfg:            cfg.Auction,
		deprecatedBidders:     openrtb_ext.NewDeprecatedBidders(cfg.DeprecatedBidders),
	}
	if cacher != nil {
		c.extCacheScheme, c.extCacheHost, c.extCachePath = cacher.GetExtCacheData()
	}
	return c
}

// responseContext holds everything the per-bid assembly reads. Nothing in it changes once assembly starts.
type responseContext struct {
	request       *openrtb2.BidRequest
	account       *config.Account
	imps          impIndex
	isApp         bool
	auction       *auction
	targeting     *targetingKeywordsResolver
	cacheIDs      map[entities.BidKey]entities.CacheInfo
	instructions  cacheInstructions
	eventsContext events.EventsContext
	storedVideo   map[string]openrtb2.Video
}

func (c *bidResponseCreator) Create(ctx context.Context, r *AuctionRequest, bidderResponses []*entities.BidderResponse) (*openrtb2.BidResponse, error) {
	requestExt, requestErrs := parseRequestExt(r.BidRequest)
	prebidExt := &requestExt.Prebid
	debugEnabled := r.Account.DebugAllow && (r.BidRequest.Test == 1 || prebidExt.Debug)

	if totalBidCount(bidderResponses) == 0 {
		c.me.RecordNoBidResponse()
		agg := responseAggregate{
			prebidErrors: append(append([]error(nil), r.Warnings...), requestErrs...),
		}
		return c.emptyResponse(r, bidderResponses, agg, debugEnabled), nil
	}

	imps := newImpIndex(r.BidRequest.Imp)
	reduced, log, err := removeRedundantBids(bidderResponses, imps)
	if err != nil {
		return nil, err
	}
	reduced, idErrs := replaceShortBidIDs(reduced, c.bidIDGenerator)

	isApp := r.BidRequest.App != nil
	targeting := newTargetingKeywordsResolver(prebidExt.Targeting, isApp, &r.Account, c.extCacheHost, c.extCachePath)
	var auc *auction
	if targeting != nil {
		var winnersLog auctionLog
		auc, winnersLog, err = resolveWinners(reduced, imps)
		if err != nil {
			return nil, err
		}
		log = log.merge(winnersLog)
	} else {
		auc = newAuction(0)
	}

	instructions := getCacheInstructions(prebidExt.Cache, c.auctionCfg, c.cache.cacher != nil)
	var candidates []entities.CacheCandidate
	if instructions.winningOnly {
		candidates = auc.winningCandidates(imps)
	} else {
		candidates = allCandidates(reduced)
	}

	eventsContext := getEventsContext(prebidExt, r.StartTime, &r.Account)

	// Both lookups fold their failures into their results, so neither task returns an error.
	var cacheResult prebid_cache_client.CacheResult
	var videoResult stored_requests.VideoStoredDataResult
	var g errgroup.Group
	g.Go(func() error {
		cacheResult = c.cache.cacheBids(ctx, candidates, reduced, r.BidRequest.Imp, instructions, &r.Account, eventsContext)
		return nil
	})
	g.Go(func() error {
		videoResult = c.fetchStoredVideo(ctx, r.BidRequest.Imp, r.Warnings)
		return nil
	})
	_ = g.Wait()

	rc := &responseContext{
		request:       r.BidRequest,
		account:       &r.Account,
		imps:          imps,
		isApp:         isApp,
		auction:       auc,
		targeting:     targeting,
		cacheIDs:      cacheResult.CacheIDs,
		instructions:  instructions,
		eventsContext: eventsContext,
		storedVideo:   videoResult.ImpIDToVideo,
	}

	seatBids, bidErrs := c.makeSeatBids(reduced, rc)
	var nbr *openrtb3.NoBidReason
	if len(seatBids) == 0 {
		c.me.RecordNoBidResponse()
		nbr = openrtb3.NoBidUnknownError.Ptr()
	}

	agg := responseAggregate{
		bidErrors:   bidErrs,
		cacheResult: cacheResult,
		log:         log,
	}
	if cacheResult.Error != nil {
		agg.prebidErrors = append(agg.prebidErrors, cacheResult.Error)
	}
	agg.prebidErrors = append(agg.prebidErrors, videoResult.Errors...)
	agg.prebidErrors = append(agg.prebidErrors, requestErrs...)
	agg.prebidErrors = append(agg.prebidErrors, idErrs...)

	log.record(c.me)

	ext := c.makeExtBidResponse(r, bidderResponses, agg, debugEnabled, prebidExt.Trace == openrtb_ext.TraceVerbose)
	extJSON, err := json.Marshal(ext)
	if err != nil {
		glog.Errorf("Error marshalling bid response ext: %v", err)
	}

	return &openrtb2.BidResponse{
		ID:      r.BidRequest.ID,
		SeatBid: seatBids,
		Cur:     responseCurrency(r.BidRequest),
		NBR:     nbr,
		Ext:     extJSON,
	}, nil
}

// fetchStoredVideo loads the stored video of imps which asked to echo it. The lookup never fails the auction.
func (c *bidResponseCreator) fetchStoredVideo(ctx context.Context, imps []openrtb2.Imp, warnings []error) stored_requests.VideoStoredDataResult {
	echoImps := make([]openrtb2.Imp, 0, len(imps))
	for _, imp := range imps {
		if echo, err := jsonparser.GetBoolean(imp.Ext, "prebid", "options", "echovideoattrs"); err == nil && echo {
			echoImps = append(echoImps, imp)
		}
	}
	if c.storedVideo == nil || len(echoImps) == 0 {
		return stored_requests.VideoStoredDataResult{ImpIDToVideo: map[string]openrtb2.Video{}, Errors: warnings}
	}

	result, err := c.storedVideo.FetchVideoStoredData(ctx, echoImps, warnings, c.storedVideoTimeout)
	if err != nil {
		glog.Warningf("Stored video lookup failed: %v", err)
		return stored_requests.VideoStoredDataResult{
			ImpIDToVideo: map[string]openrtb2.Video{},
			Errors:       append(append([]error(nil), result.Errors...), err),
		}
	}
	return result
}

func (c *bidResponseCreator) makeSeatBids(responses []*entities.BidderResponse, rc *responseContext) ([]openrtb2.SeatBid, map[openrtb_ext.BidderName][]error) {
	seatBids := make([]openrtb2.SeatBid, 0, len(responses))
	bidErrs := make(map[openrtb_ext.BidderName][]error)
	for _, response := range responses {
		if response.BidCount() == 0 {
			continue
		}
		bids := make([]openrtb2.Bid, 0, response.BidCount())
		for _, pbsBid := range response.SeatBid.Bids {
			bid, err := c.makeBid(response.Bidder, pbsBid, rc)
			if err != nil {
				bidErrs[response.Bidder] = append(bidErrs[response.Bidder], err)
				c.me.RecordNativeMarkupError(response.Bidder)
				continue
			}
			bids = append(bids, *bid)
		}
		if len(bids) == 0 {
			continue
		}
		seatBids = append(seatBids, openrtb2.SeatBid{
			Seat: response.Bidder.String(),
			Bid:  bids,
		})
	}
	return seatBids, bidErrs
}

// makeBid returns the response copy of one bid. The only error it returns is an invalid native markup.
func (c *bidResponseCreator) makeBid(bidder openrtb_ext.BidderName, pbsBid *entities.PbsOrtbBid, rc *responseContext) (*openrtb2.Bid, error) {
	imp, err := rc.imps.find(pbsBid.Bid.ImpID)
	if err != nil {
		return nil, err
	}

	source := pbsBid.Bid
	if rc.isApp && pbsBid.BidType == openrtb_ext.BidTypeNative {
		if source, err = addNativeTypes(source, imp); err != nil {
			return nil, err
		}
	}

	bid := *source
	cacheInfo := rc.cacheIDs[entities.NewBidKey(bidder, pbsBid.Bid)]
	if rc.instructions.suppressMarkup(cacheInfo) {
		bid.AdM = ""
	}

	prebid := &openrtb_ext.ExtBidPrebid{
		Type:  pbsBid.BidType,
		Video: pbsBid.BidVideo,
	}

	if rc.targeting != nil {
		prebid.Cache = c.makeBidExtCache(cacheInfo)
		if rc.auction.isBidderWinner(bidder, pbsBid) {
			isWinner := rc.auction.isWinner(bidder, pbsBid)
			prebid.Targeting = rc.targeting.forType(pbsBid.BidType).makeKeywords(bidder, source, cacheInfo, isWinner)
			if isWinner {
				c.me.RecordWinningBid(bidder, pbsBid.BidType, hasDeal(source))
			}
		}
	}

	eventBidID := bid.ID
	if c.requestBidIDGenerator.Enabled() {
		if generated, err := c.requestBidIDGenerator.New(bidder.String()); err == nil {
			prebid.BidId = generated
			eventBidID = generated
		} else {
			glog.Warningf("Error generating bid.ext.prebid.bidid for %s: %v", bidder, err)
		}
	}
	prebid.Events = makeBidExtEvents(c.eventsService, rc.eventsContext, rc.account.ID, bidder, eventBidID, lineItemID(source, imp))

	if video, ok := rc.storedVideo[imp.ID]; ok && pbsBid.BidType == openrtb_ext.BidTypeVideo {
		if attrs, err := json.Marshal(video); err == nil {
			prebid.StoredRequestAttributes = attrs
		}
	}

	bid.Ext = makeBidExtJSON(source.Ext, prebid)
	return &bid, nil
}

func (c *bidResponseCreator) makeBidExtCache(cacheInfo entities.CacheInfo) *openrtb_ext.ExtBidPrebidCache {
	if cacheInfo.IsEmpty() {
		return nil
	}
	cache := &openrtb_ext.ExtBidPrebidCache{}
	if cacheInfo.CacheID != "" {
		cache.Bids = &openrtb_ext.ExtBidPrebidCacheBids{
			Url:     buildCacheURL(c.extCacheScheme, c.extCacheHost, c.extCachePath, cacheInfo.CacheID),
			CacheId: cacheInfo.CacheID,
		}
	}
	if cacheInfo.VastCacheID != "" {
		cache.VastXml = &openrtb_ext.ExtBidPrebidCacheBids{
			Url:     buildCacheURL(c.extCacheScheme, c.extCacheHost, c.extCachePath, cacheInfo.VastCacheID),
			CacheId: cacheInfo.VastCacheID,
		}
	}
	return cache
}

// makeBidExtJSON merges ext.prebid into the ext the bidder sent. A bidder ext which isn't a JSON object is replaced.
func makeBidExtJSON(bidderExt json.RawMessage, prebid *openrtb_ext.ExtBidPrebid) json.RawMessage {
	prebidJSON, err := json.Marshal(openrtb_ext.ExtBid{Prebid: prebid})
	if err != nil {
		glog.Errorf("Error marshalling bid.ext.prebid: %v", err)
		return bidderExt
	}
	if len(bidderExt) == 0 {
		return prebidJSON
	}
	merged, err := jsonpatch.MergePatch(bidderExt, prebidJSON)
	if err != nil {
		glog.Warningf("Dropping bidder bid.ext which can't be merged: %v", err)
		return prebidJSON
	}
	return merged
}

// responseAggregate collects what ends up in bidresponse.ext besides the bidders' own data.
type responseAggregate struct {
	bidErrors    map[openrtb_ext.BidderName][]error
	prebidErrors []error
	cacheResult  prebid_cache_client.CacheResult
	log          auctionLog
}

func (c *bidResponseCreator) emptyResponse(r *AuctionRequest, bidderResponses []*entities.BidderResponse, agg responseAggregate, debugEnabled bool) *openrtb2.BidResponse {
	ext := c.makeExtBidResponse(r, bidderResponses, agg, debugEnabled, false)
	extJSON, err := json.Marshal(ext)
	if err != nil {
		glog.Errorf("Error marshalling bid response ext: %v", err)
	}
	return &openrtb2.BidResponse{
		ID:      r.BidRequest.ID,
		SeatBid: []openrtb2.SeatBid{},
		Cur:     responseCurrency(r.BidRequest),
		NBR:     openrtb3.NoBidUnknownError.Ptr(),
		Ext:     extJSON,
	}
}

func (c *bidResponseCreator) makeExtBidResponse(r *AuctionRequest, bidderResponses []*entities.BidderResponse, agg responseAggregate, debugEnabled, deepDebug bool) *openrtb_ext.ExtBidResponse {
	bidResponseExt := &openrtb_ext.ExtBidResponse{
		Errors:             make(map[openrtb_ext.BidderName][]openrtb_ext.ExtBidderMessage, len(bidderResponses)),
		ResponseTimeMillis: make(map[openrtb_ext.BidderName]int, len(bidderResponses)+1),
	}
	if debugEnabled {
		bidResponseExt.Debug = &openrtb_ext.ExtResponseDebug{
			HttpCalls:       make(map[openrtb_ext.BidderName][]*openrtb_ext.ExtHttpCall),
			ResolvedRequest: r.ResolvedBidRequest,
			Metrics:         agg.log.debugMetrics(),
		}
		if deepDebug {
			bidResponseExt.Debug.Trace = agg.log.dealTrace()
		}
	}

	if !r.StartTime.IsZero() {
		bidResponseExt.Prebid = &openrtb_ext.ExtResponsePrebid{
			AuctionTimestamp: r.StartTime.UnixMilli(),
		}
	}

	for _, response := range bidderResponses {
		bidResponseExt.ResponseTimeMillis[response.Bidder] = response.ResponseTimeMillis
		if response.SeatBid == nil {
			continue
		}
		if debugEnabled && len(response.SeatBid.HttpCalls) > 0 {
			bidResponseExt.Debug.HttpCalls[response.Bidder] = response.SeatBid.HttpCalls
		}
		// Only make an entry for bidder errors if the bidder reported any.
		if len(response.SeatBid.Errors) > 0 {
			bidResponseExt.Errors[response.Bidder] = errsToBidderErrors(response.SeatBid.Errors)
		}
	}

	for bidder, errs := range deprecatedBidderErrors(r.BidRequest.Imp, c.deprecatedBidders) {
		bidResponseExt.Errors[bidder] = append(bidResponseExt.Errors[bidder], errsToBidderErrors(errs)...)
	}
	for bidder, errs := range agg.bidErrors {
		bidResponseExt.Errors[bidder] = append(bidResponseExt.Errors[bidder], errsToBidderErrors(errs)...)
	}
	if len(agg.prebidErrors) > 0 {
		bidResponseExt.Errors[openrtb_ext.BidderReservedPrebid] = errsToBidderErrors(agg.prebidErrors)
	}

	if agg.cacheResult.HttpCall != nil {
		bidResponseExt.ResponseTimeMillis[openrtb_ext.BidderReservedCache] = agg.cacheResult.ResponseTimeMillis
		if debugEnabled {
			bidResponseExt.Debug.HttpCalls[openrtb_ext.BidderReservedCache] = []*openrtb_ext.ExtHttpCall{agg.cacheResult.HttpCall}
		}
	}
	if debugEnabled {
		for source, calls := range r.DebugHttpCalls {
			bidResponseExt.Debug.HttpCalls[openrtb_ext.BidderName(source)] = calls
		}
	}

	return bidResponseExt
}

func parseRequestExt(request *openrtb2.BidRequest) (openrtb_ext.ExtRequest, []error) {
	var requestExt openrtb_ext.ExtRequest
	if len(request.Ext) == 0 {
		return requestExt, nil
	}
	if err := json.Unmarshal(request.Ext, &requestExt); err != nil {
		return openrtb_ext.ExtRequest{}, []error{&errortypes.BadInput{Message: "Error decoding request.ext: " + err.Error()}}
	}
	return requestExt, nil
}

func totalBidCount(responses []*entities.BidderResponse) int {
	count := 0
	for _, response := range responses {
		count += response.BidCount()
	}
	return count
}

func responseCurrency(request *openrtb2.BidRequest) string {
	if len(request.Cur) > 0 {
		return request.Cur[0]
	}
	return ""
}

func buildCacheURL(scheme, host, path, uuid string) string {
	if host == "" || path == "" {
		return ""
	}

	query := url.Values{"uuid": []string{uuid}}
	cacheURL := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: query.Encode(),
	}

	// URLs without a scheme will begin with //, in which case we
	// want to trim it off to keep compatible with current behavior.
	return strings.TrimPrefix(cacheURL.String(), "//")
}
