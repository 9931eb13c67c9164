package metrics

import (
	"time"

	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

// RecordPrebidCacheRequestTime mock
func (me *MetricsEngineMock) RecordPrebidCacheRequestTime(success bool, length time.Duration) {
	me.Called(success, length)
}

// RecordStoredDataFetchTime mock
func (me *MetricsEngineMock) RecordStoredDataFetchTime(success bool, length time.Duration) {
	me.Called(success, length)
}

// RecordStoredDataCache mock
func (me *MetricsEngineMock) RecordStoredDataCache(hits, misses int) {
	me.Called(hits, misses)
}

// RecordRedundantBids mock
func (me *MetricsEngineMock) RecordRedundantBids(bidder openrtb_ext.BidderName, dropped int) {
	me.Called(bidder, dropped)
}

// RecordDealsLost mock
func (me *MetricsEngineMock) RecordDealsLost(count int) {
	me.Called(count)
}

// RecordWinningBid mock
func (me *MetricsEngineMock) RecordWinningBid(bidder openrtb_ext.BidderName, bidType openrtb_ext.BidType, isDeal bool) {
	me.Called(bidder, bidType, isDeal)
}

// RecordNoBidResponse mock
func (me *MetricsEngineMock) RecordNoBidResponse() {
	me.Called()
}

// RecordNativeMarkupError mock
func (me *MetricsEngineMock) RecordNativeMarkupError(bidder openrtb_ext.BidderName) {
	me.Called(bidder)
}
