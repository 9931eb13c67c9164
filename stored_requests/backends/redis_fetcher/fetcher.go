package redis_fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/metrics"
	"github.com/prebid/auction-core/stored_requests"
	redis "github.com/redis/go-redis/v9"
)

// multiGetter is the part of the redis client used by the fetcher.
type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// RedisFetcher loads Stored Imps saved as JSON strings under {key_prefix}{id}.
type RedisFetcher struct {
	client        multiGetter
	keyPrefix     string
	metricsEngine metrics.MetricsEngine
}

func NewFetcher(cfg config.RedisConfig, metricsEngine metrics.MetricsEngine) *RedisFetcher {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	glog.Infof("Making redis_fetcher for %s", cfg.Addr)
	return &RedisFetcher{
		client:        client,
		keyPrefix:     cfg.KeyPrefix,
		metricsEngine: metricsEngine,
	}
}

func (fetcher *RedisFetcher) FetchImps(ctx context.Context, impIDs []string) (map[string]json.RawMessage, []error) {
	if len(impIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(impIDs))
	for i, id := range impIDs {
		keys[i] = fetcher.keyPrefix + id
	}

	start := time.Now()
	values, err := fetcher.client.MGet(ctx, keys...).Result()
	if err != nil {
		fetcher.metricsEngine.RecordStoredDataFetchTime(false, time.Since(start))
		glog.Errorf("Error reading Stored Imps from redis: %v", err)
		return nil, []error{fmt.Errorf("redis mget failed: %w", err)}
	}
	fetcher.metricsEngine.RecordStoredDataFetchTime(true, time.Since(start))

	impData := make(map[string]json.RawMessage, len(impIDs))
	var errs []error
	for i, id := range impIDs {
		var value interface{}
		if i < len(values) {
			value = values[i]
		}
		switch v := value.(type) {
		case string:
			impData[id] = json.RawMessage(v)
		case nil:
			errs = append(errs, stored_requests.NotFoundError{ID: id, DataType: "Imp"})
		default:
			errs = append(errs, fmt.Errorf("redis returned a %T for Stored Imp %s", value, id))
		}
	}
	return impData, errs
}
