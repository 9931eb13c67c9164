package exchange

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
)

func TestCompareBids(t *testing.T) {
	pgImp := &openrtb2.Imp{
		ID:  "imp1",
		PMP: &openrtb2.PMP{Deals: []openrtb2.Deal{{ID: "d1"}, {ID: "d2"}}},
	}
	noDealsImp := &openrtb2.Imp{ID: "imp1"}

	testCases := []struct {
		description string
		a           openrtb2.Bid
		b           openrtb2.Bid
		imp         *openrtb2.Imp
		expected    int
	}{
		{
			description: "no deals, higher price wins",
			a:           openrtb2.Bid{Price: 5},
			b:           openrtb2.Bid{Price: 1},
			imp:         pgImp,
			expected:    1,
		},
		{
			description: "no deals, equal price ties",
			a:           openrtb2.Bid{Price: 2},
			b:           openrtb2.Bid{Price: 2},
			imp:         pgImp,
			expected:    0,
		},
		{
			description: "deal beats a richer non deal bid",
			a:           openrtb2.Bid{Price: 1, DealID: "d1"},
			b:           openrtb2.Bid{Price: 5},
			imp:         pgImp,
			expected:    1,
		},
		{
			description: "blank deal id counts as no deal",
			a:           openrtb2.Bid{Price: 1, DealID: "  "},
			b:           openrtb2.Bid{Price: 5},
			imp:         pgImp,
			expected:    -1,
		},
		{
			description: "lower deal index wins regardless of price",
			a:           openrtb2.Bid{Price: 9, DealID: "d2"},
			b:           openrtb2.Bid{Price: 1, DealID: "d1"},
			imp:         pgImp,
			expected:    -1,
		},
		{
			description: "same deal falls back to price",
			a:           openrtb2.Bid{Price: 3, DealID: "d1"},
			b:           openrtb2.Bid{Price: 2, DealID: "d1"},
			imp:         pgImp,
			expected:    1,
		},
		{
			description: "deal found in the list beats an unknown deal",
			a:           openrtb2.Bid{Price: 9, DealID: "unknown"},
			b:           openrtb2.Bid{Price: 1, DealID: "d2"},
			imp:         pgImp,
			expected:    -1,
		},
		{
			description: "two unknown deals fall back to price",
			a:           openrtb2.Bid{Price: 9, DealID: "x"},
			b:           openrtb2.Bid{Price: 1, DealID: "y"},
			imp:         pgImp,
			expected:    1,
		},
		{
			description: "two deals without a deal list fall back to price",
			a:           openrtb2.Bid{Price: 1, DealID: "d1"},
			b:           openrtb2.Bid{Price: 4, DealID: "d2"},
			imp:         noDealsImp,
			expected:    -1,
		},
		{
			description: "empty deal list falls back to price",
			a:           openrtb2.Bid{Price: 4, DealID: "d1"},
			b:           openrtb2.Bid{Price: 1, DealID: "d2"},
			imp:         &openrtb2.Imp{ID: "imp1", PMP: &openrtb2.PMP{}},
			expected:    1,
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, compareBids(&tc.a, &tc.b, tc.imp), tc.description)
	}
}

// propertyImp is the imp the generated bids are made for. Deal ids d1..d3 are listed in priority order.
func propertyImp(id string) openrtb2.Imp {
	return openrtb2.Imp{
		ID:  id,
		PMP: &openrtb2.PMP{Deals: []openrtb2.Deal{{ID: "d1"}, {ID: "d2"}, {ID: "d3"}}},
	}
}

var propertyDeals = []string{"", "d1", "d2", "d3", "unknown"}

// genBidCode packs a generated bid into an int: deal = code%5, imp = (code/5)%2, price = code/10.
func genBidCode() gopter.Gen {
	return gen.IntRange(0, 199)
}

func bidFromCode(code int, index int) *entities.PbsOrtbBid {
	return &entities.PbsOrtbBid{
		Bid: &openrtb2.Bid{
			ID:     "bid" + strconv.Itoa(index),
			ImpID:  "imp" + strconv.Itoa((code/5)%2),
			DealID: propertyDeals[code%5],
			Price:  float64(code / 10),
		},
		BidType: openrtb_ext.BidTypeBanner,
	}
}

func bidsFromCodes(codes []int) []*entities.PbsOrtbBid {
	bids := make([]*entities.PbsOrtbBid, len(codes))
	for i, code := range codes {
		bids[i] = bidFromCode(code, i)
	}
	return bids
}

func propertyImps() []openrtb2.Imp {
	return []openrtb2.Imp{propertyImp("imp0"), propertyImp("imp1")}
}

func TestCompareBidsProperties(t *testing.T) {
	imp := propertyImp("imp0")
	properties := gopter.NewProperties(nil)

	properties.Property("compare(a,b) is the negation of compare(b,a)", prop.ForAll(
		func(aCode, bCode int) bool {
			a, b := bidFromCode(aCode, 0).Bid, bidFromCode(bCode, 1).Bid
			return compareBids(a, b, &imp) == -compareBids(b, a, &imp)
		},
		genBidCode(), genBidCode(),
	))

	properties.Property("a listed deal always beats a bid without a deal", prop.ForAll(
		func(aCode, bCode int) bool {
			a, b := bidFromCode(aCode, 0).Bid, bidFromCode(bCode, 1).Bid
			if !hasDeal(a) || hasDeal(b) {
				return true
			}
			return compareBids(a, b, &imp) > 0
		},
		genBidCode(), genBidCode(),
	))

	properties.TestingRun(t)
}
