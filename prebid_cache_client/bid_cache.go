package prebid_cache_client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/golang/glog"
	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/errortypes"
	"github.com/prebid/auction-core/events"
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// CacheContext configures one Prebid Cache round trip.
type CacheContext struct {
	// BidsTTL and VideoBidsTTL are the request level TTLs. Nil when the request didn't set one.
	BidsTTL      *int64
	VideoBidsTTL *int64

	CacheBids      bool
	CacheVideoBids bool

	// BidderToVideoBidIDsToModify lists the video bids whose VAST gets the impression tracker injected.
	BidderToVideoBidIDsToModify map[openrtb_ext.BidderName][]string
	// BidderToBidIDs lists every bid left after reduction. Candidates missing from it are not cached.
	BidderToBidIDs map[openrtb_ext.BidderName][]string
}

// CacheResult is the outcome of one Prebid Cache round trip.
type CacheResult struct {
	// CacheIDs holds an entry for every bid which got at least one uuid back.
	CacheIDs           map[entities.BidKey]entities.CacheInfo
	HttpCall           *openrtb_ext.ExtHttpCall
	ResponseTimeMillis int
	Error              error
}

// BidCacher stores the bids of one auction in Prebid Cache.
type BidCacher interface {
	CacheBids(ctx context.Context, candidates []entities.CacheCandidate, imps []openrtb2.Imp, cacheContext CacheContext, account *config.Account, eventsContext events.EventsContext) CacheResult
	// GetExtCacheData returns the scheme, host and path clients should use to fetch cached assets.
	GetExtCacheData() (scheme string, host string, path string)
}

// BidCacheService builds the JSON and VAST puts for a set of bids and sends them with one Client call.
type BidCacheService struct {
	client   Client
	events   *events.Service
	hostTTLs config.DefaultTTLs
}

func NewBidCacheService(client Client, eventsService *events.Service, hostTTLs config.DefaultTTLs) *BidCacheService {
	return &BidCacheService{
		client:   client,
		events:   eventsService,
		hostTTLs: hostTTLs,
	}
}

func (s *BidCacheService) GetExtCacheData() (string, string, string) {
	return s.client.GetExtCacheData()
}

type putTarget struct {
	key  entities.BidKey
	vast bool
}

func (s *BidCacheService) CacheBids(ctx context.Context, candidates []entities.CacheCandidate, imps []openrtb2.Imp, cacheContext CacheContext, account *config.Account, eventsContext events.EventsContext) CacheResult {
	result := CacheResult{CacheIDs: make(map[entities.BidKey]entities.CacheInfo, len(candidates))}

	impsByID := make(map[string]*openrtb2.Imp, len(imps))
	for i := range imps {
		impsByID[imps[i].ID] = &imps[i]
	}

	var errs []error
	puts := make([]Cacheable, 0, len(candidates))
	targets := make([]putTarget, 0, len(candidates))
	for _, candidate := range candidates {
		if !containsBidID(cacheContext.BidderToBidIDs, candidate.Bidder, candidate.Bid.Bid.ID) {
			continue
		}
		key := candidate.Key()
		imp := impsByID[candidate.Bid.Bid.ImpID]

		if cacheContext.CacheBids {
			put, err := s.makeBidPut(candidate, imp, cacheContext.BidsTTL, account, eventsContext)
			if err != nil {
				errs = append(errs, err)
			} else {
				puts = append(puts, put)
				targets = append(targets, putTarget{key: key})
			}
		}
		if cacheContext.CacheVideoBids && candidate.Bid.BidType == openrtb_ext.BidTypeVideo {
			modify := containsBidID(cacheContext.BidderToVideoBidIDsToModify, candidate.Bidder, candidate.Bid.Bid.ID)
			put, err := s.makeVASTPut(candidate, imp, cacheContext.VideoBidsTTL, modify, account, eventsContext)
			if err != nil {
				errs = append(errs, err)
			} else {
				puts = append(puts, put)
				targets = append(targets, putTarget{key: key, vast: true})
			}
		}
	}

	if len(puts) > 0 {
		start := time.Now()
		uuids, httpCall, putErrs := s.client.PutJson(ctx, puts)
		result.ResponseTimeMillis = int(time.Since(start) / time.Millisecond)
		result.HttpCall = httpCall
		errs = append(errs, putErrs...)

		for i, uuid := range uuids {
			if uuid == "" || i >= len(targets) {
				continue
			}
			info := result.CacheIDs[targets[i].key]
			if targets[i].vast {
				info.VastCacheID = uuid
			} else {
				info.CacheID = uuid
			}
			result.CacheIDs[targets[i].key] = info
		}
	}

	if len(errs) > 0 {
		result.Error = &errortypes.FailedToCacheBids{Message: joinErrors(errs)}
	}
	return result
}

func (s *BidCacheService) makeBidPut(candidate entities.CacheCandidate, imp *openrtb2.Imp, requestTTL *int64, account *config.Account, eventsContext events.EventsContext) (Cacheable, error) {
	bid := candidate.Bid.Bid
	data, err := json.Marshal(bid)
	if err != nil {
		glog.Errorf("Error marshalling OpenRTB Bid for Prebid Cache: %v", err)
		return Cacheable{}, fmt.Errorf("Error marshalling bid %s from %s: %v", bid.ID, candidate.Bidder, err)
	}

	if eventsContext.EnabledForAccount && s.events != nil {
		winURL := s.events.WinURL(bid.ID, candidate.Bidder.String(), account.ID, eventsContext)
		patch, err := json.Marshal(map[string]string{"wurl": winURL})
		if err == nil {
			data, err = jsonpatch.MergePatch(data, patch)
		}
		if err != nil {
			return Cacheable{}, fmt.Errorf("Error adding wurl to bid %s from %s: %v", bid.ID, candidate.Bidder, err)
		}
	}

	return Cacheable{
		Type:       TypeJSON,
		Data:       data,
		TTLSeconds: resolveTTL(bid, imp, requestTTL, s.mediaTypeTTL(account, candidate.Bid.BidType)),
		BidID:      bid.ID,
		Bidder:     candidate.Bidder.String(),
	}, nil
}

func (s *BidCacheService) makeVASTPut(candidate entities.CacheCandidate, imp *openrtb2.Imp, requestTTL *int64, modify bool, account *config.Account, eventsContext events.EventsContext) (Cacheable, error) {
	bid := candidate.Bid.Bid
	vast := makeVAST(bid)
	if modify && s.events != nil {
		vast, _ = s.events.ModifyVAST(vast, bid.ID, candidate.Bidder.String(), account.ID, eventsContext)
	}

	data, err := json.Marshal(vast)
	if err != nil {
		return Cacheable{}, fmt.Errorf("Error marshalling VAST for bid %s from %s: %v", bid.ID, candidate.Bidder, err)
	}

	return Cacheable{
		Type:       TypeXML,
		Data:       data,
		TTLSeconds: resolveTTL(bid, imp, requestTTL, s.mediaTypeTTL(account, openrtb_ext.BidTypeVideo)),
		BidID:      bid.ID,
		Bidder:     candidate.Bidder.String(),
	}, nil
}

// mediaTypeTTL returns the account TTL for the media type, falling back to the host TTL.
func (s *BidCacheService) mediaTypeTTL(account *config.Account, bidType openrtb_ext.BidType) int64 {
	if account != nil {
		if ttl := ttlForType(account.CacheTTL, bidType); ttl > 0 {
			return int64(ttl)
		}
	}
	return int64(ttlForType(s.hostTTLs, bidType))
}

func ttlForType(ttls config.DefaultTTLs, bidType openrtb_ext.BidType) int {
	switch bidType {
	case openrtb_ext.BidTypeVideo:
		return ttls.Video
	case openrtb_ext.BidTypeNative:
		return ttls.Native
	case openrtb_ext.BidTypeAudio:
		return ttls.Audio
	}
	return ttls.Banner
}

// resolveTTL picks the first positive of bid.exp, imp.exp and the request TTL, then the media type default.
func resolveTTL(bid *openrtb2.Bid, imp *openrtb2.Imp, requestTTL *int64, mediaTypeTTL int64) int64 {
	if bid.Exp > 0 {
		return bid.Exp
	}
	if imp != nil && imp.Exp > 0 {
		return imp.Exp
	}
	if requestTTL != nil && *requestTTL > 0 {
		return *requestTTL
	}
	return mediaTypeTTL
}

// makeVAST returns the bid's VAST, wrapping the nurl when the bid carries no markup.
func makeVAST(bid *openrtb2.Bid) string {
	if bid.AdM == "" {
		return `<VAST version="3.0"><Ad><Wrapper>` +
			`<AdSystem>prebid.org wrapper</AdSystem>` +
			`<VASTAdTagURI><![CDATA[` + bid.NURL + `]]></VASTAdTagURI>` +
			`<Impression></Impression><Creatives></Creatives>` +
			`</Wrapper></Ad></VAST>`
	}
	return bid.AdM
}

func containsBidID(bidderToBidIDs map[openrtb_ext.BidderName][]string, bidder openrtb_ext.BidderName, bidID string) bool {
	if bidderToBidIDs == nil {
		return false
	}
	for _, id := range bidderToBidIDs[bidder] {
		if id == bidID {
			return true
		}
	}
	return false
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
