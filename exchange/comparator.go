package exchange

import (
	"strings"

	"github.com/prebid/openrtb/v20/openrtb2"
)

// compareBids ranks two bids made for the same imp. A positive result means a is worth more than b.
//
// A bid with a deal beats a bid without one regardless of price. Between two deal bids the deal listed
// first in imp.pmp.deals wins. Everything else is decided by price.
func compareBids(a, b *openrtb2.Bid, imp *openrtb2.Imp) int {
	aHasDeal, bHasDeal := hasDeal(a), hasDeal(b)
	switch {
	case !aHasDeal && !bHasDeal:
		return comparePrice(a, b)
	case aHasDeal && !bHasDeal:
		return 1
	case !aHasDeal && bHasDeal:
		return -1
	}

	deals := impDeals(imp)
	if len(deals) == 0 {
		return comparePrice(a, b)
	}

	aIndex, bIndex := dealIndex(deals, a.DealID), dealIndex(deals, b.DealID)
	switch {
	case aIndex < 0 && bIndex < 0:
		return comparePrice(a, b)
	case bIndex < 0:
		return 1
	case aIndex < 0:
		return -1
	case aIndex == bIndex:
		return comparePrice(a, b)
	case aIndex < bIndex:
		return 1
	default:
		return -1
	}
}

func comparePrice(a, b *openrtb2.Bid) int {
	switch {
	case a.Price > b.Price:
		return 1
	case a.Price < b.Price:
		return -1
	default:
		return 0
	}
}

func hasDeal(bid *openrtb2.Bid) bool {
	return strings.TrimSpace(bid.DealID) != ""
}

func impDeals(imp *openrtb2.Imp) []openrtb2.Deal {
	if imp == nil || imp.PMP == nil {
		return nil
	}
	return imp.PMP.Deals
}

// dealIndex returns the position of dealID in deals, or -1.
func dealIndex(deals []openrtb2.Deal, dealID string) int {
	for i := range deals {
		if deals[i].ID == dealID {
			return i
		}
	}
	return -1
}
