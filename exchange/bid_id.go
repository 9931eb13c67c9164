package exchange

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/prebid/auction-core/errortypes"
	"github.com/prebid/auction-core/exchange/entities"
)

// MinTrustedBidIDLength is the shortest bidder-supplied bid id kept when bid id generation is on.
const MinTrustedBidIDLength = 17

type BidIDGenerator interface {
	New(bidder string) (string, error)
	Enabled() bool
}

type bidIDGenerator struct {
	enabled bool
}

func (big *bidIDGenerator) Enabled() bool {
	return big.enabled
}

func (big *bidIDGenerator) New(bidder string) (string, error) {
	rawUuid, err := uuid.NewV4()
	return rawUuid.String(), err
}

// replaceShortBidIDs gives every bid with an id shorter than MinTrustedBidIDLength a generated id.
// Bids are copied rather than rewritten in place.
func replaceShortBidIDs(responses []*entities.BidderResponse, generator BidIDGenerator) ([]*entities.BidderResponse, []error) {
	if !generator.Enabled() {
		return responses, nil
	}

	var errs []error
	updated := make([]*entities.BidderResponse, 0, len(responses))
	for _, response := range responses {
		if response.BidCount() == 0 {
			updated = append(updated, response)
			continue
		}

		bids := make([]*entities.PbsOrtbBid, 0, len(response.SeatBid.Bids))
		changed := false
		for _, pbsBid := range response.SeatBid.Bids {
			if len(pbsBid.Bid.ID) >= MinTrustedBidIDLength {
				bids = append(bids, pbsBid)
				continue
			}
			bidID, err := generator.New(response.Bidder.String())
			if err != nil {
				errs = append(errs, &errortypes.FailedToGenerateBidID{
					Message: fmt.Sprintf("Error generating an id for bid %s from %s: %v", pbsBid.Bid.ID, response.Bidder, err),
				})
				bids = append(bids, pbsBid)
				continue
			}
			bid := *pbsBid.Bid
			bid.ID = bidID
			copied := *pbsBid
			copied.Bid = &bid
			bids = append(bids, &copied)
			changed = true
		}

		if changed {
			updated = append(updated, response.WithBids(bids))
		} else {
			updated = append(updated, response)
		}
	}
	return updated, errs
}
