package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/errortypes"
	"github.com/prebid/auction-core/events"
	"github.com/prebid/auction-core/exchange"
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/metrics"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	request   *exchange.AuctionRequest
	responses []*entities.BidderResponse
	err       error
}

func (c *fakeCreator) Create(ctx context.Context, r *exchange.AuctionRequest, bidderResponses []*entities.BidderResponse) (*openrtb2.BidResponse, error) {
	c.request = r
	c.responses = bidderResponses
	if c.err != nil {
		return nil, c.err
	}
	return &openrtb2.BidResponse{ID: r.BidRequest.ID}, nil
}

func doResolve(handler func(http.ResponseWriter, *http.Request), body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/debug/resolve", strings.NewReader(body)))
	return w
}

func TestDebugResolveConvertsBidderResponses(t *testing.T) {
	creator := &fakeCreator{}
	endpoint := NewDebugResolveEndpoint(creator, config.Account{ID: "default", DebugAllow: true})

	w := doResolve(func(w http.ResponseWriter, r *http.Request) { endpoint(w, r, nil) }, `{
		"bidrequest": {"id": "req", "imp": [{"id": "imp1"}]},
		"account": "acc",
		"bidderresponses": [{
			"bidder": "appnexus",
			"responsetimemillis": 25,
			"bids": [{"bid": {"id": "bid1", "impid": "imp1", "price": 1.5}, "type": "video", "video": {"duration": 15, "primary_category": "IAB1"}}],
			"errors": [{"code": 1, "message": "slow"}, {"code": 3, "message": "bad"}],
			"httpcalls": [{"uri": "http://appnexus", "status": 200}]
		}]
	}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"req"`)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	require.NotNil(t, creator.request)
	assert.Equal(t, "acc", creator.request.Account.ID)
	assert.True(t, creator.request.Account.DebugAllow)
	assert.False(t, creator.request.StartTime.IsZero())
	assert.Contains(t, string(creator.request.ResolvedBidRequest), `"imp":[{"id":"imp1"`)

	require.Len(t, creator.responses, 1)
	response := creator.responses[0]
	assert.Equal(t, openrtb_ext.BidderName("appnexus"), response.Bidder)
	assert.Equal(t, 25, response.ResponseTimeMillis)
	require.Len(t, response.SeatBid.Bids, 1)
	assert.Equal(t, "bid1", response.SeatBid.Bids[0].Bid.ID)
	assert.Equal(t, openrtb_ext.BidTypeVideo, response.SeatBid.Bids[0].BidType)
	assert.Equal(t, &openrtb_ext.ExtBidPrebidVideo{Duration: 15, PrimaryCategory: "IAB1"}, response.SeatBid.Bids[0].BidVideo)
	assert.Equal(t, []error{&errortypes.Timeout{Message: "slow"}, &errortypes.BadServerResponse{Message: "bad"}}, response.SeatBid.Errors)
	assert.Equal(t, "http://appnexus", response.SeatBid.HttpCalls[0].Uri)
}

func TestDebugResolveKeepsDefaultAccount(t *testing.T) {
	creator := &fakeCreator{}
	endpoint := NewDebugResolveEndpoint(creator, config.Account{ID: "default"})

	w := doResolve(func(w http.ResponseWriter, r *http.Request) { endpoint(w, r, nil) }, `{"bidrequest": {"id": "req", "imp": [{"id": "imp1"}]}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", creator.request.Account.ID)
	assert.Empty(t, creator.responses)
}

func TestDebugResolveBadRequests(t *testing.T) {
	testCases := []struct {
		description string
		body        string
		expected    string
	}{
		{description: "malformed json", body: `{"bidrequest":`, expected: "Invalid request: "},
		{description: "no request", body: `{}`, expected: "Invalid request: bidrequest is required\n"},
		{description: "no imps", body: `{"bidrequest":{"id":"req"}}`, expected: "Invalid request: bidrequest.imp must contain at least one element\n"},
		{
			description: "no bidder name",
			body:        `{"bidrequest":{"id":"req","imp":[{"id":"imp1"}]},"bidderresponses":[{"bids":[]}]}`,
			expected:    "Invalid request: bidderresponses[0].bidder is required\n",
		},
		{
			description: "reserved bidder name",
			body:        `{"bidrequest":{"id":"req","imp":[{"id":"imp1"}]},"bidderresponses":[{"bidder":"cache"}]}`,
			expected:    "Invalid request: bidderresponses[0].bidder \"cache\" is reserved\n",
		},
		{
			description: "bid without a bid object",
			body:        `{"bidrequest":{"id":"req","imp":[{"id":"imp1"}]},"bidderresponses":[{"bidder":"appnexus","bids":[{"type":"banner"}]}]}`,
			expected:    "Invalid request: bidderresponses[0].bids[0].bid is required\n",
		},
	}

	for _, test := range testCases {
		creator := &fakeCreator{}
		endpoint := NewDebugResolveEndpoint(creator, config.Account{})
		w := doResolve(func(w http.ResponseWriter, r *http.Request) { endpoint(w, r, nil) }, test.body)

		assert.Equal(t, http.StatusBadRequest, w.Code, test.description)
		assert.True(t, strings.HasPrefix(w.Body.String(), test.expected), "%s: %s", test.description, w.Body.String())
		assert.Nil(t, creator.request, test.description)
	}
}

func TestDebugResolveCreateErrors(t *testing.T) {
	testCases := []struct {
		description  string
		err          error
		expectedCode int
	}{
		{
			description:  "unknown imp",
			err:          fmt.Errorf("bid bid1: %w", exchange.ErrUnknownImpression),
			expectedCode: http.StatusBadRequest,
		},
		{
			description:  "anything else",
			err:          errors.New("boom"),
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, test := range testCases {
		endpoint := NewDebugResolveEndpoint(&fakeCreator{err: test.err}, config.Account{})
		w := doResolve(func(w http.ResponseWriter, r *http.Request) { endpoint(w, r, nil) }, `{"bidrequest":{"id":"req","imp":[{"id":"imp1"}]}}`)
		assert.Equal(t, test.expectedCode, w.Code, test.description)
	}
}

func TestDebugResolveWithResponseCreator(t *testing.T) {
	creator := exchange.NewBidResponseCreator(&config.Configuration{}, nil, nil, events.NewService("http://localhost"), &metrics.NilMetricsEngine{})
	endpoint := NewDebugResolveEndpoint(creator, config.Account{DebugAllow: true})

	w := doResolve(func(w http.ResponseWriter, r *http.Request) { endpoint(w, r, nil) }, `{
		"bidrequest": {
			"id": "req",
			"imp": [{"id": "imp1", "pmp": {"deals": [{"id": "d1"}]}}],
			"ext": {"prebid": {"targeting": {}}}
		},
		"bidderresponses": [
			{"bidder": "rubicon", "bids": [{"bid": {"id": "r1", "impid": "imp1", "price": 9}, "type": "banner"}]},
			{"bidder": "appnexus", "bids": [{"bid": {"id": "a1", "impid": "imp1", "price": 1, "dealid": "d1"}, "type": "banner"}]}
		]
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response openrtb2.BidResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.SeatBid, 2)

	var winnerExt openrtb_ext.ExtBid
	require.NoError(t, json.Unmarshal(response.SeatBid[1].Bid[0].Ext, &winnerExt))
	assert.Equal(t, "appnexus", winnerExt.Prebid.Targeting["hb_bidder"])
	assert.Equal(t, "d1", winnerExt.Prebid.Targeting["hb_deal"])
}
