package exchange

import (
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// removeRedundantBids collapses the bids each bidder made for the same imp down to the ones which can compete.
// Responses which lose no bids are returned as they came in.
// It fails with ErrUnknownImpression if any bid references an imp missing from the request.
func removeRedundantBids(responses []*entities.BidderResponse, imps impIndex) ([]*entities.BidderResponse, auctionLog, error) {
	log := auctionLog{redundantBidsDropped: make(map[openrtb_ext.BidderName]int)}
	reduced := make([]*entities.BidderResponse, 0, len(responses))
	for _, response := range responses {
		log.bidsReceived += response.BidCount()
		if response.BidCount() > 0 {
			for _, bid := range response.SeatBid.Bids {
				if _, err := imps.find(bid.Bid.ImpID); err != nil {
					return nil, log, err
				}
			}
		}

		updated, err := reduceBidderResponse(response, imps)
		if err != nil {
			return nil, log, err
		}
		if dropped := response.BidCount() - updated.BidCount(); dropped > 0 {
			log.redundantBidsDropped[response.Bidder] = dropped
		}
		reduced = append(reduced, updated)
	}
	return reduced, log, nil
}

func reduceBidderResponse(response *entities.BidderResponse, imps impIndex) (*entities.BidderResponse, error) {
	if response.BidCount() < 2 {
		return response, nil
	}

	bids := response.SeatBid.Bids
	groups := make(map[string][]*entities.PbsOrtbBid)
	var impIDs []string
	for _, bid := range bids {
		impID := bid.Bid.ImpID
		if _, ok := groups[impID]; !ok {
			impIDs = append(impIDs, impID)
		}
		groups[impID] = append(groups[impID], bid)
	}
	if len(impIDs) == len(bids) {
		return response, nil
	}

	kept := make(map[*entities.PbsOrtbBid]bool, len(bids))
	for _, impID := range impIDs {
		imp, err := imps.find(impID)
		if err != nil {
			return nil, err
		}
		for _, bid := range reduceImpBids(groups[impID], imp) {
			kept[bid] = true
		}
	}

	if len(kept) == len(bids) {
		return response, nil
	}

	survivors := make([]*entities.PbsOrtbBid, 0, len(kept))
	for _, bid := range bids {
		if kept[bid] {
			survivors = append(survivors, bid)
		}
	}
	return response.WithBids(survivors), nil
}

// reduceImpBids picks the bids of one bidder, all for the same imp, which survive reduction.
func reduceImpBids(bids []*entities.PbsOrtbBid, imp *openrtb2.Imp) []*entities.PbsOrtbBid {
	if len(bids) < 2 {
		return bids
	}

	dealBids := make([]*entities.PbsOrtbBid, 0, len(bids))
	for _, bid := range bids {
		if hasDeal(bid.Bid) {
			dealBids = append(dealBids, bid)
		}
	}
	if len(dealBids) == 0 {
		return []*entities.PbsOrtbBid{highestPriced(bids)}
	}

	deals := impDeals(imp)
	if len(deals) == 0 {
		return []*entities.PbsOrtbBid{highestPriced(dealBids)}
	}

	topDealID, found := topDeal(deals, bids)
	if !found {
		return bids
	}
	topDealBids := make([]*entities.PbsOrtbBid, 0, len(bids))
	for _, bid := range bids {
		if bid.Bid.DealID == topDealID {
			topDealBids = append(topDealBids, bid)
		}
	}
	return topDealBids
}

// topDeal returns the first of the imp's deals which any of the bids references.
func topDeal(deals []openrtb2.Deal, bids []*entities.PbsOrtbBid) (string, bool) {
	for _, deal := range deals {
		for _, bid := range bids {
			if bid.Bid.DealID == deal.ID {
				return deal.ID, true
			}
		}
	}
	return "", false
}

// highestPriced returns the first bid carrying the highest price.
func highestPriced(bids []*entities.PbsOrtbBid) *entities.PbsOrtbBid {
	best := bids[0]
	for _, bid := range bids[1:] {
		if bid.Bid.Price > best.Bid.Price {
			best = bid
		}
	}
	return best
}
