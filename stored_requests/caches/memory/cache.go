package memory

import (
	"context"
	"encoding/json"

	"github.com/coocood/freecache"
	"github.com/golang/glog"
	"github.com/prebid/auction-core/config"
)

// NewCache returns an in-memory Stored Imp cache backed by freecache.
// Entries expire after cfg.TTL seconds. A non-positive TTL keeps them until they are evicted for space.
func NewCache(cfg *config.InMemoryCache) *Cache {
	glog.Infof("Using a Stored Imp in-memory cache. Max size: %d bytes. TTL: %d seconds.", cfg.Size, cfg.TTL)
	ttl := cfg.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		lru:        freecache.NewCache(cfg.Size),
		ttlSeconds: ttl,
	}
}

type Cache struct {
	lru        *freecache.Cache
	ttlSeconds int
}

func (c *Cache) Get(ctx context.Context, ids []string) (data map[string]json.RawMessage) {
	data = make(map[string]json.RawMessage, len(ids))
	for _, id := range ids {
		if val, err := c.lru.Get([]byte(id)); err == nil {
			data[id] = val
		}
	}
	return
}

func (c *Cache) Save(ctx context.Context, data map[string]json.RawMessage) {
	for id, val := range data {
		if err := c.lru.Set([]byte(id), val, c.ttlSeconds); err != nil {
			glog.Errorf("error saving value in Stored Imp cache: %v", err)
		}
	}
}

func (c *Cache) Invalidate(ctx context.Context, ids []string) {
	for _, id := range ids {
		c.lru.Del([]byte(id))
	}
}
