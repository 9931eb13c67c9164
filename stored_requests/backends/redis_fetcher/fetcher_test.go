package redis_fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/prebid/auction-core/metrics"
	"github.com/prebid/auction-core/stored_requests"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type fakeRedis struct {
	keys   []string
	values []interface{}
	err    error
}

func (r *fakeRedis) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	r.keys = keys
	return redis.NewSliceResult(r.values, r.err)
}

func TestFetchImps(t *testing.T) {
	client := &fakeRedis{values: []interface{}{`{"video":{"w":640}}`, nil}}
	metricsEngine := &metrics.MetricsEngineMock{}
	metricsEngine.On("RecordStoredDataFetchTime", true, mock.Anything).Once()

	fetcher := &RedisFetcher{client: client, keyPrefix: "stored_imp:", metricsEngine: metricsEngine}
	imps, errs := fetcher.FetchImps(context.Background(), []string{"imp-1", "imp-2"})

	metricsEngine.AssertExpectations(t)
	assert.Equal(t, []string{"stored_imp:imp-1", "stored_imp:imp-2"}, client.keys)
	assert.Len(t, imps, 1)
	assert.JSONEq(t, `{"video":{"w":640}}`, string(imps["imp-1"]))
	assert.Equal(t, []error{stored_requests.NotFoundError{ID: "imp-2", DataType: "Imp"}}, errs)
}

func TestFetchImpsError(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	metricsEngine := &metrics.MetricsEngineMock{}
	metricsEngine.On("RecordStoredDataFetchTime", false, mock.Anything).Once()

	fetcher := &RedisFetcher{client: client, metricsEngine: metricsEngine}
	imps, errs := fetcher.FetchImps(context.Background(), []string{"imp-1"})

	metricsEngine.AssertExpectations(t)
	assert.Nil(t, imps)
	if assert.Len(t, errs, 1) {
		assert.EqualError(t, errs[0], "redis mget failed: connection refused")
	}
}

func TestFetchImpsUnexpectedType(t *testing.T) {
	client := &fakeRedis{values: []interface{}{int64(3)}}
	fetcher := &RedisFetcher{client: client, metricsEngine: &metrics.NilMetricsEngine{}}

	imps, errs := fetcher.FetchImps(context.Background(), []string{"imp-1"})
	assert.Empty(t, imps)
	assert.Len(t, errs, 1)
}

func TestFetchNoImps(t *testing.T) {
	client := &fakeRedis{}
	fetcher := &RedisFetcher{client: client, metricsEngine: &metrics.MetricsEngineMock{}}

	imps, errs := fetcher.FetchImps(context.Background(), nil)
	assert.Nil(t, imps)
	assert.Nil(t, errs)
	assert.Nil(t, client.keys)
}
