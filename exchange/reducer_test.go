package exchange

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bidderResponse(bidder string, bids ...*entities.PbsOrtbBid) *entities.BidderResponse {
	return &entities.BidderResponse{
		Bidder:             openrtb_ext.BidderName(bidder),
		SeatBid:            &entities.PbsOrtbSeatBid{Bids: bids},
		ResponseTimeMillis: 10,
	}
}

func banner(id, impID string, price float64, dealID string) *entities.PbsOrtbBid {
	return &entities.PbsOrtbBid{
		Bid:     &openrtb2.Bid{ID: id, ImpID: impID, Price: price, DealID: dealID},
		BidType: openrtb_ext.BidTypeBanner,
	}
}

func bidIDs(response *entities.BidderResponse) []string {
	ids := make([]string, 0, response.BidCount())
	for _, bid := range response.SeatBid.Bids {
		ids = append(ids, bid.Bid.ID)
	}
	return ids
}

func TestReduceBidderResponse(t *testing.T) {
	pgImps := newImpIndex([]openrtb2.Imp{
		{ID: "imp1", PMP: &openrtb2.PMP{Deals: []openrtb2.Deal{{ID: "d1"}, {ID: "d2"}}}},
		{ID: "imp2"},
	})

	testCases := []struct {
		description string
		bids        []*entities.PbsOrtbBid
		expectedIDs []string
	}{
		{
			description: "no deals keeps the highest price",
			bids: []*entities.PbsOrtbBid{
				banner("a", "imp2", 2.00, ""),
				banner("b", "imp2", 7.50, ""),
				banner("c", "imp2", 3.25, ""),
			},
			expectedIDs: []string{"b"},
		},
		{
			description: "price ties keep the first bid",
			bids: []*entities.PbsOrtbBid{
				banner("a", "imp2", 3, ""),
				banner("b", "imp2", 3, ""),
			},
			expectedIDs: []string{"a"},
		},
		{
			description: "top deal bids survive in order",
			bids: []*entities.PbsOrtbBid{
				banner("a", "imp1", 9, "d2"),
				banner("b", "imp1", 1, "d1"),
				banner("c", "imp1", 5, ""),
				banner("d", "imp1", 2, "d1"),
			},
			expectedIDs: []string{"b", "d"},
		},
		{
			description: "unknown deals keep the whole group",
			bids: []*entities.PbsOrtbBid{
				banner("a", "imp1", 9, "x"),
				banner("b", "imp1", 1, ""),
			},
			expectedIDs: []string{"a", "b"},
		},
		{
			description: "no deal list keeps the richest deal bid over richer non deal bids",
			bids: []*entities.PbsOrtbBid{
				banner("a", "imp2", 9, ""),
				banner("b", "imp2", 1, "x"),
				banner("c", "imp2", 2, "y"),
			},
			expectedIDs: []string{"c"},
		},
		{
			description: "groups are reduced independently",
			bids: []*entities.PbsOrtbBid{
				banner("a", "imp1", 1, ""),
				banner("b", "imp2", 1, ""),
				banner("c", "imp1", 2, ""),
			},
			expectedIDs: []string{"b", "c"},
		},
	}

	for _, tc := range testCases {
		response := bidderResponse("appnexus", tc.bids...)
		reduced, err := reduceBidderResponse(response, pgImps)
		require.NoError(t, err, tc.description)
		assert.Equal(t, tc.expectedIDs, bidIDs(reduced), tc.description)
	}
}

func TestReduceBidderResponseKeepsIdentity(t *testing.T) {
	imps := newImpIndex([]openrtb2.Imp{{ID: "imp1"}, {ID: "imp2"}})
	response := bidderResponse("appnexus", banner("a", "imp1", 1, ""), banner("b", "imp2", 2, ""))

	reduced, err := reduceBidderResponse(response, imps)
	require.NoError(t, err)
	assert.Same(t, response, reduced)
}

func TestReduceBidderResponseSharesErrorsAndCalls(t *testing.T) {
	imps := newImpIndex([]openrtb2.Imp{{ID: "imp1"}})
	response := bidderResponse("appnexus", banner("a", "imp1", 1, ""), banner("b", "imp1", 2, ""))
	response.SeatBid.Errors = []error{errors.New("adapter error")}
	response.SeatBid.HttpCalls = []*openrtb_ext.ExtHttpCall{{Uri: "http://bidder"}}

	reduced, err := reduceBidderResponse(response, imps)
	require.NoError(t, err)
	assert.NotSame(t, response, reduced)
	assert.Equal(t, []string{"b"}, bidIDs(reduced))
	assert.Equal(t, response.SeatBid.Errors, reduced.SeatBid.Errors)
	assert.Equal(t, response.SeatBid.HttpCalls, reduced.SeatBid.HttpCalls)
	assert.Len(t, response.SeatBid.Bids, 2, "original response must not change")
}

func TestRemoveRedundantBids(t *testing.T) {
	imps := newImpIndex([]openrtb2.Imp{{ID: "imp1"}})
	responses := []*entities.BidderResponse{
		bidderResponse("appnexus", banner("a", "imp1", 2.00, ""), banner("b", "imp1", 7.50, ""), banner("c", "imp1", 3.25, "")),
		bidderResponse("rubicon", banner("d", "imp1", 1, "")),
		{Bidder: "empty"},
	}

	reduced, log, err := removeRedundantBids(responses, imps)
	require.NoError(t, err)
	require.Len(t, reduced, 3)
	assert.Equal(t, []string{"b"}, bidIDs(reduced[0]))
	assert.Same(t, responses[1], reduced[1])
	assert.Same(t, responses[2], reduced[2])
	assert.Equal(t, 4, log.bidsReceived)
	assert.Equal(t, map[openrtb_ext.BidderName]int{"appnexus": 2}, log.redundantBidsDropped)
}

func TestRemoveRedundantBidsUnknownImp(t *testing.T) {
	imps := newImpIndex([]openrtb2.Imp{{ID: "imp1"}})
	responses := []*entities.BidderResponse{bidderResponse("appnexus", banner("a", "missing", 1, ""))}

	_, _, err := removeRedundantBids(responses, imps)
	assert.True(t, errors.Is(err, ErrUnknownImpression))
}

func TestRemoveRedundantBidsProperties(t *testing.T) {
	imps := newImpIndex(propertyImps())
	properties := gopter.NewProperties(nil)

	properties.Property("reducing a reduced response changes nothing", prop.ForAll(
		func(codes []int) bool {
			response := bidderResponse("appnexus", bidsFromCodes(codes)...)
			once, err := reduceBidderResponse(response, imps)
			if err != nil {
				return false
			}
			twice, err := reduceBidderResponse(once, imps)
			return err == nil && twice == once
		},
		gen.SliceOf(genBidCode()),
	))

	properties.Property("reduction only removes bids", prop.ForAll(
		func(codes []int) bool {
			response := bidderResponse("appnexus", bidsFromCodes(codes)...)
			reduced, err := reduceBidderResponse(response, imps)
			if err != nil {
				return false
			}
			original := make(map[*entities.PbsOrtbBid]bool, len(codes))
			for _, bid := range response.SeatBid.Bids {
				original[bid] = true
			}
			for _, bid := range reduced.SeatBid.Bids {
				if !original[bid] {
					return false
				}
			}
			return reduced.BidCount() <= response.BidCount()
		},
		gen.SliceOf(genBidCode()),
	))

	properties.TestingRun(t)
}
