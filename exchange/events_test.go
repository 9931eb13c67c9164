package exchange

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/events"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
)

func TestGetEventsContext(t *testing.T) {
	ts := time.Unix(1700000000, 123000000)

	testCases := []struct {
		description string
		prebid      *openrtb_ext.ExtRequestPrebid
		account     config.Account
		expected    events.EventsContext
	}{
		{
			description: "nothing enabled",
			prebid:      &openrtb_ext.ExtRequestPrebid{},
			expected:    events.EventsContext{AuctionTimestampMs: 1700000000123},
		},
		{
			description: "request asks for events",
			prebid:      &openrtb_ext.ExtRequestPrebid{Events: json.RawMessage(`{}`), Integration: "pbjs"},
			account:     config.Account{EventsEnabled: true},
			expected: events.EventsContext{
				EnabledForAccount:  true,
				EnabledForRequest:  true,
				AuctionTimestampMs: 1700000000123,
				Integration:        "pbjs",
			},
		},
		{
			description: "null events object",
			prebid:      &openrtb_ext.ExtRequestPrebid{Events: json.RawMessage(`null`)},
			expected:    events.EventsContext{AuctionTimestampMs: 1700000000123},
		},
		{
			description: "channel enabled by the account",
			prebid:      &openrtb_ext.ExtRequestPrebid{Channel: &openrtb_ext.ExtRequestPrebidChannel{Name: "amp"}},
			account:     config.Account{ChannelEvents: map[string]bool{"amp": true}},
			expected:    events.EventsContext{EnabledForRequest: true, AuctionTimestampMs: 1700000000123},
		},
		{
			description: "channel not enabled by the account",
			prebid:      &openrtb_ext.ExtRequestPrebid{Channel: &openrtb_ext.ExtRequestPrebidChannel{Name: "web"}},
			account:     config.Account{ChannelEvents: map[string]bool{"amp": true}},
			expected:    events.EventsContext{AuctionTimestampMs: 1700000000123},
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, getEventsContext(tc.prebid, ts, &tc.account), tc.description)
	}
}

func TestGetEventsContextWithoutStartTime(t *testing.T) {
	ctx := getEventsContext(&openrtb_ext.ExtRequestPrebid{}, time.Time{}, &config.Account{EventsEnabled: true})
	assert.Equal(t, events.EventsContext{EnabledForAccount: true}, ctx)
}

func TestLineItemID(t *testing.T) {
	imp := &openrtb2.Imp{
		ID: "imp1",
		PMP: &openrtb2.PMP{Deals: []openrtb2.Deal{
			{ID: "d1", Ext: json.RawMessage(`{"line":{"lineitemid":"li-1"}}`)},
			{ID: "d2"},
		}},
	}

	assert.Equal(t, "li-1", lineItemID(&openrtb2.Bid{DealID: "d1"}, imp))
	assert.Equal(t, "", lineItemID(&openrtb2.Bid{DealID: "d2"}, imp))
	assert.Equal(t, "", lineItemID(&openrtb2.Bid{DealID: "d3"}, imp))
	assert.Equal(t, "", lineItemID(&openrtb2.Bid{}, imp))
}

func TestMakeBidExtEvents(t *testing.T) {
	service := events.NewService("http://localhost")
	ctx := events.EventsContext{EnabledForAccount: true, EnabledForRequest: true, AuctionTimestampMs: 1234}

	ev := makeBidExtEvents(service, ctx, "acc", "appnexus", "bid1", "")
	if assert.NotNil(t, ev) {
		assert.Equal(t, "http://localhost/event?t=win&b=bid1&a=acc&bidder=appnexus&ts=1234", ev.Win)
		assert.Equal(t, "http://localhost/event?t=imp&b=bid1&a=acc&bidder=appnexus&ts=1234", ev.Imp)
	}

	ctx.EnabledForAccount = false
	assert.Nil(t, makeBidExtEvents(service, ctx, "acc", "appnexus", "bid1", ""))
	assert.Nil(t, makeBidExtEvents(nil, events.EventsContext{EnabledForAccount: true, EnabledForRequest: true}, "acc", "appnexus", "bid1", ""))
}
