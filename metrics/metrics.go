package metrics

import (
	"time"

	"github.com/prebid/auction-core/openrtb_ext"
)

// MetricsEngine is a generic interface to record metrics into the desired backend.
// Implementations must be safe for concurrent use.
type MetricsEngine interface {
	// RecordPrebidCacheRequestTime records the duration of the single Prebid Cache call made per auction.
	RecordPrebidCacheRequestTime(success bool, length time.Duration)
	// RecordStoredDataFetchTime records how long the stored imp backend took to answer.
	RecordStoredDataFetchTime(success bool, length time.Duration)
	// RecordStoredDataCache records in-memory stored imp cache hits and misses for one lookup.
	RecordStoredDataCache(hits, misses int)
	// RecordRedundantBids records how many of a bidder's bids were collapsed before winner resolution.
	RecordRedundantBids(bidder openrtb_ext.BidderName, dropped int)
	// RecordDealsLost records deals which lost an impression to a higher priority deal.
	RecordDealsLost(count int)
	RecordWinningBid(bidder openrtb_ext.BidderName, bidType openrtb_ext.BidType, isDeal bool)
	RecordNoBidResponse()
	RecordNativeMarkupError(bidder openrtb_ext.BidderName)
}
