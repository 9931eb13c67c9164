package exchange

import (
	"context"

	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/events"
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/auction-core/prebid_cache_client"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// cacheInstructions holds the caching settings of one auction, taken from bidrequest.ext.prebid.cache.
type cacheInstructions struct {
	cacheBids      bool
	cacheVideoBids bool
	// returnCreativeBids and returnCreativeVideoBids keep adm on bids whose JSON or VAST got cached.
	returnCreativeBids      bool
	returnCreativeVideoBids bool
	winningOnly             bool
	bidsTTL                 *int64
	videoBidsTTL            *int64
}

func getCacheInstructions(cache *openrtb_ext.ExtRequestPrebidCache, auctionCfg config.Auction, cacheAvailable bool) cacheInstructions {
	instructions := cacheInstructions{
		returnCreativeBids:      true,
		returnCreativeVideoBids: true,
		winningOnly:             auctionCfg.CacheWinningBidsOnly,
	}
	if cache == nil {
		return instructions
	}

	if cache.WinningOnly != nil {
		instructions.winningOnly = *cache.WinningOnly
	}
	if cache.Bids != nil {
		instructions.cacheBids = cacheAvailable
		instructions.returnCreativeBids = boolOrDefault(cache.Bids.ReturnCreative, true)
		instructions.bidsTTL = positiveTTL(cache.Bids.TTLSeconds)
	}
	if cache.VastXML != nil {
		instructions.cacheVideoBids = cacheAvailable
		instructions.returnCreativeVideoBids = boolOrDefault(cache.VastXML.ReturnCreative, true)
		instructions.videoBidsTTL = positiveTTL(cache.VastXML.TTLSeconds)
	}
	return instructions
}

func (ci cacheInstructions) enabled() bool {
	return ci.cacheBids || ci.cacheVideoBids
}

// suppressMarkup reports whether adm must be dropped from a bid cached as described by info.
func (ci cacheInstructions) suppressMarkup(info entities.CacheInfo) bool {
	return (info.VastCacheID != "" && !ci.returnCreativeVideoBids) || (info.CacheID != "" && !ci.returnCreativeBids)
}

func positiveTTL(ttl int64) *int64 {
	if ttl <= 0 {
		return nil
	}
	return &ttl
}

// cacheCoordinator makes the single Prebid Cache round trip of an auction.
type cacheCoordinator struct {
	cacher prebid_cache_client.BidCacher
	events config.Events
}

// cacheBids stores the candidates and guarantees every one of them an entry in the returned CacheIDs,
// empty if it wasn't cached. Failures are reported through CacheResult.Error.
func (c *cacheCoordinator) cacheBids(ctx context.Context, candidates []entities.CacheCandidate, responses []*entities.BidderResponse, imps []openrtb2.Imp, instructions cacheInstructions, account *config.Account, eventsContext events.EventsContext) prebid_cache_client.CacheResult {
	if c.cacher == nil || !instructions.enabled() {
		return prebid_cache_client.CacheResult{CacheIDs: emptyCacheIDs(candidates)}
	}

	toCache := make([]entities.CacheCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Bid.Bid.Price > 0 {
			toCache = append(toCache, candidate)
		}
	}

	var result prebid_cache_client.CacheResult
	if len(toCache) > 0 {
		cacheContext := prebid_cache_client.CacheContext{
			BidsTTL:        instructions.bidsTTL,
			VideoBidsTTL:   instructions.videoBidsTTL,
			CacheBids:      instructions.cacheBids,
			CacheVideoBids: instructions.cacheVideoBids,
			BidderToBidIDs: bidderToBidIDs(responses),
		}
		if instructions.cacheVideoBids && eventsContext.EnabledForAccount {
			cacheContext.BidderToVideoBidIDsToModify = c.videoBidIDsToModify(responses)
		}
		result = c.cacher.CacheBids(ctx, toCache, imps, cacheContext, account, eventsContext)
	}

	if result.CacheIDs == nil {
		result.CacheIDs = make(map[entities.BidKey]entities.CacheInfo, len(candidates))
	}
	for _, candidate := range candidates {
		if _, ok := result.CacheIDs[candidate.Key()]; !ok {
			result.CacheIDs[candidate.Key()] = entities.CacheInfo{}
		}
	}
	return result
}

func (c *cacheCoordinator) videoBidIDsToModify(responses []*entities.BidderResponse) map[openrtb_ext.BidderName][]string {
	toModify := make(map[openrtb_ext.BidderName][]string)
	for _, response := range responses {
		if response.BidCount() == 0 || !c.events.IsModifyingVASTAllowed(response.Bidder.String()) {
			continue
		}
		for _, bid := range response.SeatBid.Bids {
			if bid.BidType == openrtb_ext.BidTypeVideo {
				toModify[response.Bidder] = append(toModify[response.Bidder], bid.Bid.ID)
			}
		}
	}
	return toModify
}

func bidderToBidIDs(responses []*entities.BidderResponse) map[openrtb_ext.BidderName][]string {
	bidIDs := make(map[openrtb_ext.BidderName][]string, len(responses))
	for _, response := range responses {
		if response.BidCount() == 0 {
			continue
		}
		for _, bid := range response.SeatBid.Bids {
			bidIDs[response.Bidder] = append(bidIDs[response.Bidder], bid.Bid.ID)
		}
	}
	return bidIDs
}

func emptyCacheIDs(candidates []entities.CacheCandidate) map[entities.BidKey]entities.CacheInfo {
	cacheIDs := make(map[entities.BidKey]entities.CacheInfo, len(candidates))
	for _, candidate := range candidates {
		cacheIDs[candidate.Key()] = entities.CacheInfo{}
	}
	return cacheIDs
}

// allCandidates returns every bid left after reduction, in response order.
func allCandidates(responses []*entities.BidderResponse) []entities.CacheCandidate {
	var candidates []entities.CacheCandidate
	for _, response := range responses {
		if response.BidCount() == 0 {
			continue
		}
		for _, bid := range response.SeatBid.Bids {
			candidates = append(candidates, entities.CacheCandidate{Bidder: response.Bidder, Bid: bid})
		}
	}
	return candidates
}
