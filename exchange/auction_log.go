package exchange

import (
	"github.com/prebid/auction-core/metrics"
	"github.com/prebid/auction-core/openrtb_ext"
)

// auctionLog accumulates the bookkeeping produced by each stage of response creation.
// Stages return their own log and the creator merges them once the response is built.
type auctionLog struct {
	bidsReceived         int
	redundantBidsDropped map[openrtb_ext.BidderName]int
	lostDeals            []openrtb_ext.ExtTraceDeal
}

func (l auctionLog) merge(other auctionLog) auctionLog {
	merged := auctionLog{
		bidsReceived:         l.bidsReceived + other.bidsReceived,
		redundantBidsDropped: make(map[openrtb_ext.BidderName]int, len(l.redundantBidsDropped)+len(other.redundantBidsDropped)),
		lostDeals:            make([]openrtb_ext.ExtTraceDeal, 0, len(l.lostDeals)+len(other.lostDeals)),
	}
	for bidder, dropped := range l.redundantBidsDropped {
		merged.redundantBidsDropped[bidder] += dropped
	}
	for bidder, dropped := range other.redundantBidsDropped {
		merged.redundantBidsDropped[bidder] += dropped
	}
	merged.lostDeals = append(merged.lostDeals, l.lostDeals...)
	merged.lostDeals = append(merged.lostDeals, other.lostDeals...)
	return merged
}

func (l auctionLog) record(me metrics.MetricsEngine) {
	for bidder, dropped := range l.redundantBidsDropped {
		me.RecordRedundantBids(bidder, dropped)
	}
	if len(l.lostDeals) > 0 {
		me.RecordDealsLost(len(l.lostDeals))
	}
}

func (l auctionLog) debugMetrics() *openrtb_ext.ExtDebugMetrics {
	m := &openrtb_ext.ExtDebugMetrics{
		BidsReceived: l.bidsReceived,
		DealsLost:    len(l.lostDeals),
	}
	if len(l.redundantBidsDropped) > 0 {
		m.RedundantBidsDropped = l.redundantBidsDropped
	}
	return m
}

func (l auctionLog) dealTrace() *openrtb_ext.ExtDebugTrace {
	if len(l.lostDeals) == 0 {
		return nil
	}
	return &openrtb_ext.ExtDebugTrace{Deals: l.lostDeals}
}
