package openrtb_ext

// BidderName refers to a core bidder id or an alias id.
type BidderName string

func (name BidderName) String() string {
	return string(name)
}

// Names reserved for entries in bidder-keyed response maps which are not bidders.
const (
	// BidderReservedPrebid collects errors raised by Prebid Server itself.
	BidderReservedPrebid BidderName = "prebid"
	// BidderReservedCache holds the Prebid Cache call in responsetimemillis and debug httpcalls.
	BidderReservedCache BidderName = "cache"
)

// IsBidderNameReserved returns true if the name can't be used for a bidder.
func IsBidderNameReserved(name string) bool {
	switch BidderName(name) {
	case BidderReservedPrebid, BidderReservedCache:
		return true
	}
	return false
}

// DeprecatedBidders maps retired bidder names to the message returned when a request still uses them.
type DeprecatedBidders map[BidderName]string

// NewDeprecatedBidders builds the message table from an old name -> new name mapping.
func NewDeprecatedBidders(renamed map[string]string) DeprecatedBidders {
	deprecated := make(DeprecatedBidders, len(renamed))
	for oldName, newName := range renamed {
		if newName == "" {
			deprecated[BidderName(oldName)] = oldName + " is a deprecated bidder and is no longer supported"
			continue
		}
		deprecated[BidderName(oldName)] = oldName + " has been deprecated and is no longer available. Use " + newName + " instead."
	}
	return deprecated
}
