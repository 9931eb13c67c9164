package exchange

import (
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// auction stores the winners of a single call to BidResponseCreator.Create().
// Construct these with the newAuction() function.
type auction struct {
	// winningBids is a map from imp.id to the most valuable bid on that imp.
	winningBids map[string]*entities.PbsOrtbBid
	// winningBidders is a map from imp.id to the BidderName which made the winning Bid.
	winningBidders map[string]openrtb_ext.BidderName
	// winningBidsByBidder stores the most valuable bid on each imp by each bidder.
	winningBidsByBidder map[string]map[openrtb_ext.BidderName]*entities.PbsOrtbBid
}

func newAuction(numImps int) *auction {
	return &auction{
		winningBids:         make(map[string]*entities.PbsOrtbBid, numImps),
		winningBidders:      make(map[string]openrtb_ext.BidderName, numImps),
		winningBidsByBidder: make(map[string]map[openrtb_ext.BidderName]*entities.PbsOrtbBid, numImps),
	}
}

// resolveWinners walks every bid once, keeping the best bid per imp and per imp per bidder.
func resolveWinners(responses []*entities.BidderResponse, imps impIndex) (*auction, auctionLog, error) {
	a := newAuction(len(imps.imps))
	for _, response := range responses {
		if response.BidCount() == 0 {
			continue
		}
		for _, bid := range response.SeatBid.Bids {
			imp, err := imps.find(bid.Bid.ImpID)
			if err != nil {
				return nil, auctionLog{}, err
			}
			a.addBid(response.Bidder, bid, imp)
		}
	}
	return a, auctionLog{lostDeals: a.lostDeals(responses, imps)}, nil
}

// addBid should be called for each bid which is "officially" valid for the auction.
// A bid replaces the incumbent only when it ranks strictly higher.
func (a *auction) addBid(name openrtb_ext.BidderName, bid *entities.PbsOrtbBid, imp *openrtb2.Imp) {
	impID := bid.Bid.ImpID
	if best, ok := a.winningBids[impID]; !ok || compareBids(bid.Bid, best.Bid, imp) > 0 {
		a.winningBids[impID] = bid
		a.winningBidders[impID] = name
	}

	bidMap, ok := a.winningBidsByBidder[impID]
	if !ok {
		bidMap = make(map[openrtb_ext.BidderName]*entities.PbsOrtbBid)
		a.winningBidsByBidder[impID] = bidMap
	}
	if best, ok := bidMap[name]; !ok || compareBids(bid.Bid, best.Bid, imp) > 0 {
		bidMap[name] = bid
	}
}

// isWinner reports whether the bid won its imp across all bidders.
// Bids are matched by identity: a bidder may return several bids sharing one id.
func (a *auction) isWinner(name openrtb_ext.BidderName, bid *entities.PbsOrtbBid) bool {
	if a == nil {
		return false
	}
	winner, ok := a.winningBids[bid.Bid.ImpID]
	return ok && a.winningBidders[bid.Bid.ImpID] == name && winner == bid
}

// isBidderWinner reports whether the bid is the best one its bidder made on its imp.
func (a *auction) isBidderWinner(name openrtb_ext.BidderName, bid *entities.PbsOrtbBid) bool {
	if a == nil {
		return false
	}
	winner, ok := a.winningBidsByBidder[bid.Bid.ImpID][name]
	return ok && winner == bid
}

// winningCandidates returns the overall winners in request imp order.
func (a *auction) winningCandidates(imps impIndex) []entities.CacheCandidate {
	candidates := make([]entities.CacheCandidate, 0, len(a.winningBids))
	for _, imp := range imps.imps {
		if bid, ok := a.winningBids[imp.ID]; ok {
			candidates = append(candidates, entities.CacheCandidate{Bidder: a.winningBidders[imp.ID], Bid: bid})
		}
	}
	return candidates
}

// lostDeals lists, for every imp won by a deal bid, the other deals bid on that imp.
func (a *auction) lostDeals(responses []*entities.BidderResponse, imps impIndex) []openrtb_ext.ExtTraceDeal {
	var lost []openrtb_ext.ExtTraceDeal
	for _, imp := range imps.imps {
		winner, ok := a.winningBids[imp.ID]
		if !ok || !hasDeal(winner.Bid) {
			continue
		}
		seen := map[string]bool{winner.Bid.DealID: true}
		for _, response := range responses {
			if response.BidCount() == 0 {
				continue
			}
			for _, bid := range response.SeatBid.Bids {
				if bid.Bid.ImpID != imp.ID || !hasDeal(bid.Bid) || seen[bid.Bid.DealID] {
					continue
				}
				seen[bid.Bid.DealID] = true
				lost = append(lost, openrtb_ext.ExtTraceDeal{
					ImpID:  imp.ID,
					DealID: bid.Bid.DealID,
					LostTo: winner.Bid.DealID,
				})
			}
		}
	}
	return lost
}
