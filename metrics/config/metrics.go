package config

import (
	"time"

	"github.com/golang/glog"
	mainConfig "github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/metrics"
	prometheusmetrics "github.com/prebid/auction-core/metrics/prometheus"
	"github.com/prebid/auction-core/openrtb_ext"
	gometrics "github.com/rcrowley/go-metrics"
	influxdb "github.com/vrischmann/go-metrics-influxdb"
)

// NewMetricsEngine reads the configuration and returns the appropriate metrics engine
// for this instance.
func NewMetricsEngine(cfg *mainConfig.Configuration, bidders []openrtb_ext.BidderName) *DetailedMetricsEngine {
	// Create a list of metrics engines to use.
	// Capacity of 2, as unlikely to have more than 2 metrics backends, and in the case
	// of 1 we won't use the list so it will be garbage collected.
	engineList := make(MultiMetricsEngine, 0, 2)
	returnEngine := DetailedMetricsEngine{}

	if cfg.Metrics.Influxdb.Host != "" {
		// Currently use go-metrics as the metrics piece for influx
		returnEngine.GoMetrics = metrics.NewMetrics(gometrics.NewPrefixedRegistry("prebidserver."), bidders)
		engineList = append(engineList, returnEngine.GoMetrics)
		// Set up the Influx logger
		go influxdb.InfluxDB(
			returnEngine.GoMetrics.MetricsRegistry,                             // metrics registry
			time.Second*time.Duration(cfg.Metrics.Influxdb.MetricSendInterval), // Configurable interval
			cfg.Metrics.Influxdb.Host,                                          // the InfluxDB url
			cfg.Metrics.Influxdb.Database,                                      // your InfluxDB database
			cfg.Metrics.Influxdb.Measurement,                                   // your measurement
			cfg.Metrics.Influxdb.Username,                                      // your InfluxDB user
			cfg.Metrics.Influxdb.Password,                                      // your InfluxDB password
			cfg.Metrics.Influxdb.AlignTimestamps,                               // align timestamps
		)
		glog.Infof("Reporting go-metrics to InfluxDB at %s every %ds", cfg.Metrics.Influxdb.Host, cfg.Metrics.Influxdb.MetricSendInterval)
	}
	if cfg.Metrics.Prometheus.Port != 0 {
		// Set up the Prometheus metrics.
		returnEngine.PrometheusMetrics = prometheusmetrics.NewMetrics(cfg.Metrics.Prometheus)
		engineList = append(engineList, returnEngine.PrometheusMetrics)
	}

	// Now return the proper metrics engine
	if len(engineList) > 1 {
		returnEngine.MetricsEngine = &engineList
	} else if len(engineList) == 1 {
		returnEngine.MetricsEngine = engineList[0]
	} else {
		returnEngine.MetricsEngine = &metrics.NilMetricsEngine{}
	}

	return &returnEngine
}

// DetailedMetricsEngine is a MultiMetricsEngine that preserves links to underlying metrics engines.
type DetailedMetricsEngine struct {
	metrics.MetricsEngine
	GoMetrics         *metrics.Metrics
	PrometheusMetrics *prometheusmetrics.Metrics
}

// MultiMetricsEngine logs metrics to multiple metrics databases The can be useful in transitioning
// an instance from one engine to another, you can run both in parallel to verify stats match up.
type MultiMetricsEngine []metrics.MetricsEngine

func (me *MultiMetricsEngine) RecordPrebidCacheRequestTime(success bool, length time.Duration) {
	for _, thisME := range *me {
		thisME.RecordPrebidCacheRequestTime(success, length)
	}
}

func (me *MultiMetricsEngine) RecordStoredDataFetchTime(success bool, length time.Duration) {
	for _, thisME := range *me {
		thisME.RecordStoredDataFetchTime(success, length)
	}
}

func (me *MultiMetricsEngine) RecordStoredDataCache(hits, misses int) {
	for _, thisME := range *me {
		thisME.RecordStoredDataCache(hits, misses)
	}
}

func (me *MultiMetricsEngine) RecordRedundantBids(bidder openrtb_ext.BidderName, dropped int) {
	for _, thisME := range *me {
		thisME.RecordRedundantBids(bidder, dropped)
	}
}

func (me *MultiMetricsEngine) RecordDealsLost(count int) {
	for _, thisME := range *me {
		thisME.RecordDealsLost(count)
	}
}

func (me *MultiMetricsEngine) RecordWinningBid(bidder openrtb_ext.BidderName, bidType openrtb_ext.BidType, isDeal bool) {
	for _, thisME := range *me {
		thisME.RecordWinningBid(bidder, bidType, isDeal)
	}
}

func (me *MultiMetricsEngine) RecordNoBidResponse() {
	for _, thisME := range *me {
		thisME.RecordNoBidResponse()
	}
}

func (me *MultiMetricsEngine) RecordNativeMarkupError(bidder openrtb_ext.BidderName) {
	for _, thisME := range *me {
		thisME.RecordNativeMarkupError(bidder)
	}
}
