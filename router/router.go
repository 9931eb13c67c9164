package router

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	_ "github.com/lib/pq"
	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/endpoints"
	"github.com/prebid/auction-core/events"
	"github.com/prebid/auction-core/exchange"
	"github.com/prebid/auction-core/metrics"
	metricsConf "github.com/prebid/auction-core/metrics/config"
	pbc "github.com/prebid/auction-core/prebid_cache_client"
	"github.com/prebid/auction-core/stored_requests"
	"github.com/prebid/auction-core/stored_requests/backends/db_fetcher"
	"github.com/prebid/auction-core/stored_requests/backends/empty_fetcher"
	"github.com/prebid/auction-core/stored_requests/backends/http_fetcher"
	"github.com/prebid/auction-core/stored_requests/backends/redis_fetcher"
	"github.com/prebid/auction-core/stored_requests/caches/memory"
)

type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

type Router struct {
	*httprouter.Router
	MetricsEngine *metricsConf.DetailedMetricsEngine
	Shutdown      func()
}

// New wires every collaborator of the response creator from the configuration and mounts the endpoints.
func New(cfg *config.Configuration) (r *Router, err error) {
	r = &Router{
		Router:   httprouter.New(),
		Shutdown: func() {},
	}

	r.MetricsEngine = metricsConf.NewMetricsEngine(cfg, nil)

	impFetcher, shutdown, err := newImpFetcher(&cfg.StoredVideo, r.MetricsEngine)
	if err != nil {
		return nil, err
	}
	r.Shutdown = shutdown
	storedVideo := stored_requests.NewVideoStoredDataService(impFetcher)

	eventsService := events.NewService(cfg.ExternalURL)

	var cacher pbc.BidCacher
	if cfg.CacheURL.Host != "" {
		cacheClient := pbc.NewClient(&cfg.CacheURL, &cfg.ExtCacheURL, r.MetricsEngine)
		cacher = pbc.NewBidCacheService(cacheClient, eventsService, cfg.CacheURL.DefaultTTLs)
	} else {
		glog.Warning("cache.host is not set. Bids will not be cached.")
	}

	creator := exchange.NewBidResponseCreator(cfg, cacher, storedVideo, eventsService, r.MetricsEngine)

	r.GET("/status", endpoints.NewStatusEndpoint(cfg.StatusResponse))
	r.POST("/debug/resolve", endpoints.NewDebugResolveEndpoint(creator, cfg.AccountDefaults))

	return r, nil
}

// newImpFetcher builds the Stored Imp backend named by cfg.Backend, fronted by an in-memory cache when one is sized.
// The returned func releases the backend's connections.
func newImpFetcher(cfg *config.StoredVideo, metricsEngine metrics.MetricsEngine) (stored_requests.ImpFetcher, func(), error) {
	var fetcher stored_requests.ImpFetcher
	shutdown := func() {}

	switch cfg.Backend {
	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.ConnString())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open the stored video database: %v", err)
		}
		glog.Infof("Loading Stored Imps from postgres. DB=%s, host=%s", cfg.Postgres.Database, cfg.Postgres.Host)
		fetcher = db_fetcher.NewFetcher(db, cfg.Postgres.MakeQuery, metricsEngine)
		shutdown = func() {
			if err := db.Close(); err != nil {
				glog.Errorf("Error closing DB connection: %v", err)
			}
		}
	case "redis":
		fetcher = redis_fetcher.NewFetcher(cfg.Redis, metricsEngine)
	case "http":
		client := &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
		fetcher = http_fetcher.NewFetcher(client, cfg.HTTP.Endpoint, metricsEngine)
	default:
		fetcher = empty_fetcher.EmptyFetcher{}
	}

	if cfg.InMemoryCache.Size > 0 {
		fetcher = stored_requests.WithCache(fetcher, memory.NewCache(&cfg.InMemoryCache), metricsEngine)
	}
	return fetcher, shutdown, nil
}
