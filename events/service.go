package events

import "github.com/prebid/auction-core/openrtb_ext"

// Service builds the win and imp notification urls attached to bids.
type Service struct {
	externalURL string
}

func NewService(externalURL string) *Service {
	return &Service{externalURL: externalURL}
}

// CreateEvent returns the bid's event urls, or nil when neither the request nor a deal line item asks for them.
// When the request didn't enable events the urls still fire for line item delivery, but with analytics off.
func (s *Service) CreateEvent(bidID, bidder, accountID, lineItemID string, enabledForRequest bool, ctx EventsContext) *openrtb_ext.ExtBidPrebidEvents {
	if !enabledForRequest && lineItemID == "" {
		return nil
	}

	analytics := Analytics("")
	if !enabledForRequest {
		analytics = Disabled
	}

	return &openrtb_ext.ExtBidPrebidEvents{
		Win: s.eventURL(Win, bidID, bidder, accountID, lineItemID, analytics, ctx),
		Imp: s.eventURL(Imp, bidID, bidder, accountID, lineItemID, analytics, ctx),
	}
}

// WinURL returns the win notification url stored with cached bid JSON as wurl.
func (s *Service) WinURL(bidID, bidder, accountID string, ctx EventsContext) string {
	return s.eventURL(Win, bidID, bidder, accountID, "", "", ctx)
}

// VastURLTracking returns the impression url injected into cached VAST.
func (s *Service) VastURLTracking(bidID, bidder, accountID string, ctx EventsContext) string {
	return GetVastUrlTracking(s.externalURL, bidID, bidder, accountID, ctx.AuctionTimestampMs, ctx.Integration)
}

// ModifyVAST injects the impression tracker into the VAST document.
func (s *Service) ModifyVAST(vast, bidID, bidder, accountID string, ctx EventsContext) (string, bool) {
	return ModifyVastXmlString(s.externalURL, vast, bidID, bidder, accountID, ctx.AuctionTimestampMs, ctx.Integration)
}

func (s *Service) eventURL(eventType EventType, bidID, bidder, accountID, lineItemID string, analytics Analytics, ctx EventsContext) string {
	return EventRequestToUrl(s.externalURL, &EventRequest{
		Type:        eventType,
		BidID:       bidID,
		AccountID:   accountID,
		Bidder:      bidder,
		Timestamp:   ctx.AuctionTimestampMs,
		Analytics:   analytics,
		Integration: ctx.Integration,
		LineItemID:  lineItemID,
	})
}
