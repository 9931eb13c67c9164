package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prebid/auction-core/openrtb_ext"
	metrics "github.com/rcrowley/go-metrics"
)

// Metrics implements MetricsEngine on top of a go-metrics registry.
type Metrics struct {
	MetricsRegistry metrics.Registry

	PrebidCacheRequestTimerSuccess metrics.Timer
	PrebidCacheRequestTimerError   metrics.Timer
	StoredDataFetchTimerSuccess    metrics.Timer
	StoredDataFetchTimerError      metrics.Timer
	StoredDataCacheHitMeter        metrics.Meter
	StoredDataCacheMissMeter       metrics.Meter
	DealsLostMeter                 metrics.Meter
	NoBidResponseMeter             metrics.Meter

	// Don't export adapterMetrics because we need helper functions here to insure its properly populated dynamically
	adapterMetrics        map[openrtb_ext.BidderName]*AdapterMetrics
	adapterMetricsRWMutex sync.RWMutex
}

// AdapterMetrics houses the metrics for a particular bidder
type AdapterMetrics struct {
	RedundantBidsMeter     metrics.Meter
	NativeMarkupErrorMeter metrics.Meter
	WinningDealBidMeter    metrics.Meter
	WinningBidMeters       map[openrtb_ext.BidType]metrics.Meter
}

// NewMetrics creates a new Metrics object with all metrics registered on the given registry.
// Bidder metrics are registered the first time the bidder is seen.
func NewMetrics(registry metrics.Registry, bidders []openrtb_ext.BidderName) *Metrics {
	newMetrics := &Metrics{
		MetricsRegistry:                registry,
		PrebidCacheRequestTimerSuccess: metrics.GetOrRegisterTimer("prebid_cache_request_time.ok", registry),
		PrebidCacheRequestTimerError:   metrics.GetOrRegisterTimer("prebid_cache_request_time.err", registry),
		StoredDataFetchTimerSuccess:    metrics.GetOrRegisterTimer("stored_video_fetch_time.ok", registry),
		StoredDataFetchTimerError:      metrics.GetOrRegisterTimer("stored_video_fetch_time.err", registry),
		StoredDataCacheHitMeter:        metrics.GetOrRegisterMeter("stored_video_cache.hit", registry),
		StoredDataCacheMissMeter:       metrics.GetOrRegisterMeter("stored_video_cache.miss", registry),
		DealsLostMeter:                 metrics.GetOrRegisterMeter("deals_lost", registry),
		NoBidResponseMeter:             metrics.GetOrRegisterMeter("no_bid_responses", registry),
		adapterMetrics:                 make(map[openrtb_ext.BidderName]*AdapterMetrics, len(bidders)),
	}
	for _, bidder := range bidders {
		newMetrics.adapterMetrics[bidder] = makeAdapterMetrics(registry, bidder)
	}
	return newMetrics
}

func makeAdapterMetrics(registry metrics.Registry, bidder openrtb_ext.BidderName) *AdapterMetrics {
	prefix := fmt.Sprintf("adapter.%s", bidder)
	am := &AdapterMetrics{
		RedundantBidsMeter:     metrics.GetOrRegisterMeter(prefix+".redundant_bids", registry),
		NativeMarkupErrorMeter: metrics.GetOrRegisterMeter(prefix+".native_markup_errors", registry),
		WinningDealBidMeter:    metrics.GetOrRegisterMeter(prefix+".winning_bids.deal", registry),
		WinningBidMeters:       make(map[openrtb_ext.BidType]metrics.Meter, 4),
	}
	for _, bidType := range openrtb_ext.BidTypes() {
		am.WinningBidMeters[bidType] = metrics.GetOrRegisterMeter(fmt.Sprintf("%s.winning_bids.%s", prefix, bidType), registry)
	}
	return am
}

// getAdapterMetrics returns the bidder's metrics, registering them on first use.
func (me *Metrics) getAdapterMetrics(bidder openrtb_ext.BidderName) *AdapterMetrics {
	me.adapterMetricsRWMutex.RLock()
	am, ok := me.adapterMetrics[bidder]
	me.adapterMetricsRWMutex.RUnlock()
	if ok {
		return am
	}

	me.adapterMetricsRWMutex.Lock()
	defer me.adapterMetricsRWMutex.Unlock()
	// Check again in case another goroutine registered the bidder first
	if am, ok = me.adapterMetrics[bidder]; ok {
		return am
	}
	am = makeAdapterMetrics(me.MetricsRegistry, bidder)
	me.adapterMetrics[bidder] = am
	return am
}

func (me *Metrics) RecordPrebidCacheRequestTime(success bool, length time.Duration) {
	if success {
		me.PrebidCacheRequestTimerSuccess.Update(length)
	} else {
		me.PrebidCacheRequestTimerError.Update(length)
	}
}

func (me *Metrics) RecordStoredDataFetchTime(success bool, length time.Duration) {
	if success {
		me.StoredDataFetchTimerSuccess.Update(length)
	} else {
		me.StoredDataFetchTimerError.Update(length)
	}
}

func (me *Metrics) RecordStoredDataCache(hits, misses int) {
	me.StoredDataCacheHitMeter.Mark(int64(hits))
	me.StoredDataCacheMissMeter.Mark(int64(misses))
}

func (me *Metrics) RecordRedundantBids(bidder openrtb_ext.BidderName, dropped int) {
	me.getAdapterMetrics(bidder).RedundantBidsMeter.Mark(int64(dropped))
}

func (me *Metrics) RecordDealsLost(count int) {
	me.DealsLostMeter.Mark(int64(count))
}

func (me *Metrics) RecordWinningBid(bidder openrtb_ext.BidderName, bidType openrtb_ext.BidType, isDeal bool) {
	am := me.getAdapterMetrics(bidder)
	if meter, ok := am.WinningBidMeters[bidType]; ok {
		meter.Mark(1)
	}
	if isDeal {
		am.WinningDealBidMeter.Mark(1)
	}
}

func (me *Metrics) RecordNoBidResponse() {
	me.NoBidResponseMeter.Mark(1)
}

func (me *Metrics) RecordNativeMarkupError(bidder openrtb_ext.BidderName) {
	me.getAdapterMetrics(bidder).NativeMarkupErrorMeter.Mark(1)
}
