package exchange

import (
	"bytes"
	"time"

	"github.com/buger/jsonparser"
	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/events"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// getEventsContext creates the events settings of one auction from the account and the request.
func getEventsContext(requestExtPrebid *openrtb_ext.ExtRequestPrebid, ts time.Time, account *config.Account) events.EventsContext {
	ctx := events.EventsContext{
		EnabledForAccount: account.EventsEnabled,
		EnabledForRequest: eventsEnabledForRequest(requestExtPrebid, account),
		Integration:       getIntegrationType(requestExtPrebid),
	}
	if !ts.IsZero() {
		ctx.AuctionTimestampMs = ts.UnixMilli()
	}
	return ctx
}

func eventsEnabledForRequest(requestExtPrebid *openrtb_ext.ExtRequestPrebid, account *config.Account) bool {
	if requestExtPrebid == nil {
		return false
	}
	if requested := bytes.TrimSpace(requestExtPrebid.Events); len(requested) > 0 && !bytes.Equal(requested, []byte("null")) {
		return true
	}
	if requestExtPrebid.Channel != nil {
		return account.EventsEnabledForChannel(requestExtPrebid.Channel.Name)
	}
	return false
}

func getIntegrationType(requestExtPrebid *openrtb_ext.ExtRequestPrebid) string {
	if requestExtPrebid != nil {
		return requestExtPrebid.Integration
	}
	return ""
}

// lineItemID returns imp.pmp.deals[i].ext.line.lineitemid of the deal the bid was made for.
func lineItemID(bid *openrtb2.Bid, imp *openrtb2.Imp) string {
	if !hasDeal(bid) {
		return ""
	}
	for _, deal := range impDeals(imp) {
		if deal.ID != bid.DealID {
			continue
		}
		if id, err := jsonparser.GetString(deal.Ext, "line", "lineitemid"); err == nil {
			return id
		}
		return ""
	}
	return ""
}

// makeBidExtEvents returns the event urls of a bid, or nil if the account doesn't allow events.
func makeBidExtEvents(service *events.Service, eventsContext events.EventsContext, accountID string, bidder openrtb_ext.BidderName, bidID string, lineItem string) *openrtb_ext.ExtBidPrebidEvents {
	if service == nil || !eventsContext.EnabledForAccount {
		return nil
	}
	return service.CreateEvent(bidID, bidder.String(), accountID, lineItem, eventsContext.EnabledForRequest, eventsContext)
}
