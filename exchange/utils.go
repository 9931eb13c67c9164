package exchange

import (
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/prebid/auction-core/errortypes"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// errsToBidderErrors converts errors of any severity into the messages reported in bidresponse.ext.errors.
func errsToBidderErrors(errs []error) []openrtb_ext.ExtBidderMessage {
	sErr := make([]openrtb_ext.ExtBidderMessage, 0, len(errs))
	for _, err := range errs {
		newErr := openrtb_ext.ExtBidderMessage{
			Code:    errortypes.ReadCode(err),
			Message: err.Error(),
		}
		sErr = append(sErr, newErr)
	}
	return sErr
}

// deprecatedBidderErrors returns a warning for each retired bidder name found in imp.ext.prebid.bidder,
// keyed by the name the request used.
func deprecatedBidderErrors(imps []openrtb2.Imp, deprecated openrtb_ext.DeprecatedBidders) map[openrtb_ext.BidderName][]error {
	found := make(map[openrtb_ext.BidderName][]error)
	if len(deprecated) == 0 {
		return found
	}
	for _, imp := range imps {
		jsonparser.ObjectEach(imp.Ext, func(key []byte, _ []byte, _ jsonparser.ValueType, _ int) error {
			bidder := openrtb_ext.BidderName(key)
			if message, ok := deprecated[bidder]; ok {
				found[bidder] = append(found[bidder], &errortypes.DeprecatedBidder{
					Message: fmt.Sprintf("%s (imp %s)", message, imp.ID),
				})
			}
			return nil
		}, "prebid", "bidder")
	}
	return found
}
