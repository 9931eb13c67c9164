package metrics

import (
	"time"

	"github.com/prebid/auction-core/openrtb_ext"
)

// NilMetricsEngine implements MetricsEngine and discards everything.
// The server uses this when no metrics backend is configured.
type NilMetricsEngine struct{}

func (me *NilMetricsEngine) RecordPrebidCacheRequestTime(success bool, length time.Duration) {}

func (me *NilMetricsEngine) RecordStoredDataFetchTime(success bool, length time.Duration) {}

func (me *NilMetricsEngine) RecordStoredDataCache(hits, misses int) {}

func (me *NilMetricsEngine) RecordRedundantBids(bidder openrtb_ext.BidderName, dropped int) {}

func (me *NilMetricsEngine) RecordDealsLost(count int) {}

func (me *NilMetricsEngine) RecordWinningBid(bidder openrtb_ext.BidderName, bidType openrtb_ext.BidType, isDeal bool) {
}

func (me *NilMetricsEngine) RecordNoBidResponse() {}

func (me *NilMetricsEngine) RecordNativeMarkupError(bidder openrtb_ext.BidderName) {}
