package prometheusmetrics

import (
	"strconv"
	"time"

	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines the Prometheus metrics backing the MetricsEngine interface.
type Metrics struct {
	Registry *prometheus.Registry

	prebidCacheWriteTimer *prometheus.HistogramVec
	storedDataFetchTimer  *prometheus.HistogramVec
	storedDataCacheResult *prometheus.CounterVec
	redundantBids         *prometheus.CounterVec
	dealsLost             prometheus.Counter
	winningBids           *prometheus.CounterVec
	noBidResponses        prometheus.Counter
	nativeMarkupErrors    *prometheus.CounterVec
}

const (
	adapterLabel     = "adapter"
	bidTypeLabel     = "bid_type"
	cacheResultLabel = "cache_result"
	dealLabel        = "deal"
	successLabel     = "success"
)

const (
	cacheHit  = "hit"
	cacheMiss = "miss"
)

// NewMetrics initializes a new Prometheus metrics instance with its own registry.
func NewMetrics(cfg config.PrometheusMetrics) *Metrics {
	cacheWriteTimeBuckets := []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 1}
	storedDataTimeBuckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

	metrics := Metrics{}
	metrics.Registry = prometheus.NewRegistry()

	metrics.prebidCacheWriteTimer = newHistogramVec(cfg, metrics.Registry,
		"prebidcache_write_time_seconds",
		"Seconds to write to Prebid Cache labeled by success or failure. Failure timing is limited by Prebid Server enforced timeouts.",
		[]string{successLabel},
		cacheWriteTimeBuckets)

	metrics.storedDataFetchTimer = newHistogramVec(cfg, metrics.Registry,
		"stored_video_fetch_time_seconds",
		"Seconds to fetch stored imps for video attribute echoing labeled by success or failure.",
		[]string{successLabel},
		storedDataTimeBuckets)

	metrics.storedDataCacheResult = newCounter(cfg, metrics.Registry,
		"stored_video_cache_performance",
		"Count of stored imp cache lookups by hits or miss.",
		[]string{cacheResultLabel})

	metrics.redundantBids = newCounter(cfg, metrics.Registry,
		"adapter_redundant_bids",
		"Count of bids dropped because a bidder returned more than one competing bid for an impression.",
		[]string{adapterLabel})

	metrics.dealsLost = newCounterWithoutLabels(cfg, metrics.Registry,
		"deals_lost",
		"Count of deals which lost an impression to a higher priority deal.")

	metrics.winningBids = newCounter(cfg, metrics.Registry,
		"adapter_winning_bids",
		"Count of per-bidder winning bids labeled by bid type and deal.",
		[]string{adapterLabel, bidTypeLabel, dealLabel})

	metrics.noBidResponses = newCounterWithoutLabels(cfg, metrics.Registry,
		"no_bid_responses",
		"Count of auctions answered without any bid.")

	metrics.nativeMarkupErrors = newCounter(cfg, metrics.Registry,
		"adapter_native_markup_errors",
		"Count of native bids dropped because their markup didn't match the native request.",
		[]string{adapterLabel})

	return &metrics
}

func newCounter(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newCounterWithoutLabels(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string) prometheus.Counter {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounter(opts)
	registry.MustRegister(counter)
	return counter
}

func newHistogramVec(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

func (m *Metrics) RecordPrebidCacheRequestTime(success bool, length time.Duration) {
	m.prebidCacheWriteTimer.With(prometheus.Labels{
		successLabel: strconv.FormatBool(success),
	}).Observe(length.Seconds())
}

func (m *Metrics) RecordStoredDataFetchTime(success bool, length time.Duration) {
	m.storedDataFetchTimer.With(prometheus.Labels{
		successLabel: strconv.FormatBool(success),
	}).Observe(length.Seconds())
}

func (m *Metrics) RecordStoredDataCache(hits, misses int) {
	m.storedDataCacheResult.With(prometheus.Labels{
		cacheResultLabel: cacheHit,
	}).Add(float64(hits))
	m.storedDataCacheResult.With(prometheus.Labels{
		cacheResultLabel: cacheMiss,
	}).Add(float64(misses))
}

func (m *Metrics) RecordRedundantBids(bidder openrtb_ext.BidderName, dropped int) {
	m.redundantBids.With(prometheus.Labels{
		adapterLabel: string(bidder),
	}).Add(float64(dropped))
}

func (m *Metrics) RecordDealsLost(count int) {
	m.dealsLost.Add(float64(count))
}

func (m *Metrics) RecordWinningBid(bidder openrtb_ext.BidderName, bidType openrtb_ext.BidType, isDeal bool) {
	m.winningBids.With(prometheus.Labels{
		adapterLabel: string(bidder),
		bidTypeLabel: string(bidType),
		dealLabel:    strconv.FormatBool(isDeal),
	}).Inc()
}

func (m *Metrics) RecordNoBidResponse() {
	m.noBidResponses.Inc()
}

func (m *Metrics) RecordNativeMarkupError(bidder openrtb_ext.BidderName) {
	m.nativeMarkupErrors.With(prometheus.Labels{
		adapterLabel: string(bidder),
	}).Inc()
}
