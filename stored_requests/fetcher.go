package stored_requests

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prebid/auction-core/metrics"
)

// ImpFetcher knows how to fetch Stored Imp data by id.
//
// Implementations must be safe for concurrent access by multiple goroutines.
// Callers are expected to share a single instance as much as possible.
type ImpFetcher interface {
	// FetchImps fetches the stored imps for the given IDs.
	//
	// The returned map will have a key for every ID in the impIDs list, unless errors exist.
	// The returned objects can only be read from. They may not be written to.
	FetchImps(ctx context.Context, impIDs []string) (impData map[string]json.RawMessage, errs []error)
}

// NotFoundError is an error type to flag that an ID was not found by the Fetcher.
type NotFoundError struct {
	ID       string
	DataType string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf(`Stored %s with ID="%s" not found.`, e.DataType, e.ID)
}

// CacheJSON is an intermediate layer which can be put in front of an ImpFetcher.
// Implementations must be safe for concurrent access by multiple goroutines.
type CacheJSON interface {
	// Get works much like ImpFetcher.FetchImps, with a few exceptions:
	//
	// 1. Any (actionable) errors should be logged by the implementation, rather than returned.
	// 2. The returned map _may_ be written to.
	// 3. The returned map must _not_ contain keys unless they were present in the argument ID list.
	// 4. Callers _should not_ assume that the returned map contains a key for every argument id.
	Get(ctx context.Context, ids []string) (data map[string]json.RawMessage)

	// Invalidate will ensure that all values associated with the given IDs
	// are no longer returned by the cache until new values are saved via Save
	Invalidate(ctx context.Context, ids []string)

	// Save will add or overwrite the data in the cache at the given keys
	Save(ctx context.Context, data map[string]json.RawMessage)
}

type fetcherWithCache struct {
	fetcher       ImpFetcher
	cache         CacheJSON
	metricsEngine metrics.MetricsEngine
}

// WithCache returns an ImpFetcher which uses the given cache before delegating to the original.
func WithCache(fetcher ImpFetcher, cache CacheJSON, metricsEngine metrics.MetricsEngine) ImpFetcher {
	return &fetcherWithCache{
		cache:         cache,
		fetcher:       fetcher,
		metricsEngine: metricsEngine,
	}
}

func (f *fetcherWithCache) FetchImps(ctx context.Context, impIDs []string) (impData map[string]json.RawMessage, errs []error) {
	impData = f.cache.Get(ctx, impIDs)

	leftoverImps := findLeftovers(impIDs, impData)
	f.metricsEngine.RecordStoredDataCache(len(impIDs)-len(leftoverImps), len(leftoverImps))

	if len(leftoverImps) > 0 {
		fetcherImpData, fetcherErrs := f.fetcher.FetchImps(ctx, leftoverImps)
		errs = fetcherErrs

		f.cache.Save(ctx, fetcherImpData)

		impData = mergeData(impData, fetcherImpData)
	}

	return
}

func findLeftovers(ids []string, data map[string]json.RawMessage) (leftovers []string) {
	leftovers = make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := data[id]; !ok {
			leftovers = append(leftovers, id)
		}
	}
	return
}

func mergeData(cachedData map[string]json.RawMessage, fetchedData map[string]json.RawMessage) (mergedData map[string]json.RawMessage) {
	mergedData = cachedData
	if mergedData == nil {
		mergedData = fetchedData
	} else {
		for key, value := range fetchedData {
			mergedData[key] = value
		}
	}
	return
}
