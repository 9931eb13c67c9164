package entities

import (
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// PbsOrtbSeatBid is the SeatBid one bidder returned.
//
// This is distinct from the openrtb2.SeatBid so that the prebid ext can be passed back with typesafety.
type PbsOrtbSeatBid struct {
	// Bids is the list of bids which this bidder wishes to make.
	Bids []*PbsOrtbBid
	// Currency is the currency in which the bids are made.
	// Should be a valid currency ISO code.
	Currency string
	// HttpCalls is the list of debugging info. It should only be populated if the request.test == 1.
	// This will become response.ext.debug.httpcalls.{bidder} on the final Response.
	HttpCalls []*openrtb_ext.ExtHttpCall
	// Errors are the adapter errors reported for this seat.
	Errors []error
}

// PbsOrtbBid is a Bid returned by a bidder.
//
// PbsOrtbBid.Bid.Ext is merged with "response.seatbid[i].bid.ext.prebid" in the final OpenRTB response.
// PbsOrtbBid.BidType will become "response.seatbid[i].bid.ext.prebid.type" in the final OpenRTB response.
// PbsOrtbBid.BidVideo is optional but should be filled out by the bidder if BidType is video.
type PbsOrtbBid struct {
	Bid      *openrtb2.Bid
	BidType  openrtb_ext.BidType
	BidVideo *openrtb_ext.ExtBidPrebidVideo
}

// BidderResponse is one bidder's whole contribution to an auction.
type BidderResponse struct {
	Bidder             openrtb_ext.BidderName
	SeatBid            *PbsOrtbSeatBid
	ResponseTimeMillis int
}

// BidCount returns the number of bids carried by the response.
func (r *BidderResponse) BidCount() int {
	if r == nil || r.SeatBid == nil {
		return 0
	}
	return len(r.SeatBid.Bids)
}

// WithBids returns a copy of the response carrying bids in place of the original list.
// Errors and debug calls are shared with the original.
func (r *BidderResponse) WithBids(bids []*PbsOrtbBid) *BidderResponse {
	seatBid := *r.SeatBid
	seatBid.Bids = bids
	return &BidderResponse{
		Bidder:             r.Bidder,
		SeatBid:            &seatBid,
		ResponseTimeMillis: r.ResponseTimeMillis,
	}
}

// BidKey identifies a bid within one auction.
type BidKey struct {
	Bidder openrtb_ext.BidderName
	BidID  string
	ImpID  string
}

// NewBidKey builds the key of a bidder's bid.
func NewBidKey(bidder openrtb_ext.BidderName, bid *openrtb2.Bid) BidKey {
	return BidKey{Bidder: bidder, BidID: bid.ID, ImpID: bid.ImpID}
}

// CacheInfo correlates a bid with the Prebid Cache entries created for it.
// The zero value means the bid was not cached.
type CacheInfo struct {
	CacheID     string
	VastCacheID string
}

func (c CacheInfo) IsEmpty() bool {
	return c.CacheID == "" && c.VastCacheID == ""
}

// CacheCandidate is a bid submitted to the cache along with the bidder which made it.
type CacheCandidate struct {
	Bidder openrtb_ext.BidderName
	Bid    *PbsOrtbBid
}

func (c CacheCandidate) Key() BidKey {
	return NewBidKey(c.Bidder, c.Bid.Bid)
}
