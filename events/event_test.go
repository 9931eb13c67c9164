package events

import (
	"testing"

	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/stretchr/testify/assert"
)

func TestEventRequestToUrl(t *testing.T) {
	externalUrl := "http://localhost:8000"
	tests := map[string]struct {
		er   *EventRequest
		want string
	}{
		"one": {
			er: &EventRequest{
				Type:      Imp,
				BidID:     "bidid",
				AccountID: "accountId",
				Bidder:    "bidder",
				Timestamp: 1234567,
				Format:    Blank,
				Analytics: Enabled,
			},
			want: "http://localhost:8000/event?t=imp&b=bidid&a=accountId&bidder=bidder&f=b&ts=1234567&x=1",
		},
		"two": {
			er: &EventRequest{
				Type:      Win,
				BidID:     "bidid",
				AccountID: "accountId",
				Bidder:    "bidder",
				Timestamp: 1234567,
				Format:    Image,
				Analytics: Disabled,
			},
			want: "http://localhost:8000/event?t=win&b=bidid&a=accountId&bidder=bidder&f=i&ts=1234567&x=0",
		},
		"three - format and analytics undefined": {
			er: &EventRequest{
				Type:      Win,
				BidID:     "bidid",
				AccountID: "accountId",
				Bidder:    "bidder",
				Timestamp: 1234567,
			},
			want: "http://localhost:8000/event?t=win&b=bidid&a=accountId&bidder=bidder&ts=1234567",
		},
		"four - integration and line item": {
			er: &EventRequest{
				Type:        Imp,
				BidID:       "bid id",
				AccountID:   "accountId",
				Integration: "pbjs",
				LineItemID:  "li-1",
			},
			want: "http://localhost:8000/event?t=imp&b=bid+id&a=accountId&int=pbjs&l=li-1",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, EventRequestToUrl(externalUrl, test.er))
		})
	}
}

func TestModifyVastXmlString(t *testing.T) {
	const vastUrl = "http://localhost:8000/event?t=imp&b=bid&a=acc&bidder=bidder&f=b&int=pbjs&ts=1000"

	tests := map[string]struct {
		vast   string
		want   string
		wantOk bool
	}{
		"no impression tag": {
			vast:   `<VAST version="3.0"><Ad><Wrapper></Wrapper></Ad></VAST>`,
			want:   `<VAST version="3.0"><Ad><Wrapper></Wrapper></Ad></VAST>`,
			wantOk: false,
		},
		"empty impression tag": {
			vast:   `<VAST><Impression></Impression></VAST>`,
			want:   `<VAST><Impression><![CDATA[` + vastUrl + `]]></Impression></VAST>`,
			wantOk: true,
		},
		"existing impression tag": {
			vast:   `<VAST><Impression>http://other</Impression></VAST>`,
			want:   `<VAST><Impression>http://other</Impression><Impression><![CDATA[` + vastUrl + `]]></Impression></VAST>`,
			wantOk: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := ModifyVastXmlString("http://localhost:8000", test.vast, "bid", "bidder", "acc", 1000, "pbjs")
			assert.Equal(t, test.wantOk, ok)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestCreateEvent(t *testing.T) {
	service := NewService("http://pbs.example.com")
	ctx := EventsContext{EnabledForAccount: true, AuctionTimestampMs: 1000, Integration: "pbjs"}

	tests := map[string]struct {
		lineItemID        string
		enabledForRequest bool
		want              *openrtb_ext.ExtBidPrebidEvents
	}{
		"disabled for request without line item": {
			enabledForRequest: false,
			want:              nil,
		},
		"enabled for request": {
			enabledForRequest: true,
			want: &openrtb_ext.ExtBidPrebidEvents{
				Win: "http://pbs.example.com/event?t=win&b=bid1&a=acc&bidder=appnexus&int=pbjs&ts=1000",
				Imp: "http://pbs.example.com/event?t=imp&b=bid1&a=acc&bidder=appnexus&int=pbjs&ts=1000",
			},
		},
		"line item delivery without request events": {
			lineItemID:        "li-7",
			enabledForRequest: false,
			want: &openrtb_ext.ExtBidPrebidEvents{
				Win: "http://pbs.example.com/event?t=win&b=bid1&a=acc&bidder=appnexus&int=pbjs&l=li-7&ts=1000&x=0",
				Imp: "http://pbs.example.com/event?t=imp&b=bid1&a=acc&bidder=appnexus&int=pbjs&l=li-7&ts=1000&x=0",
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := service.CreateEvent("bid1", "appnexus", "acc", test.lineItemID, test.enabledForRequest, ctx)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestVastURLTracking(t *testing.T) {
	service := NewService("http://pbs.example.com")
	ctx := EventsContext{AuctionTimestampMs: 5}

	assert.Equal(t, "http://pbs.example.com/event?t=imp&b=bid1&a=acc&bidder=rubicon&f=b&ts=5",
		service.VastURLTracking("bid1", "rubicon", "acc", ctx))

	modified, ok := service.ModifyVAST("<VAST><Impression></Impression></VAST>", "bid1", "rubicon", "acc", ctx)
	assert.True(t, ok)
	assert.Equal(t, "<VAST><Impression><![CDATA[http://pbs.example.com/event?t=imp&b=bid1&a=acc&bidder=rubicon&f=b&ts=5]]></Impression></VAST>", modified)
}

func TestWinURL(t *testing.T) {
	service := NewService("http://pbs.example.com")
	ctx := EventsContext{AuctionTimestampMs: 1000, Integration: "web"}

	assert.Equal(t, "http://pbs.example.com/event?t=win&b=bid1&a=acc&bidder=appnexus&int=web&ts=1000",
		service.WinURL("bid1", "appnexus", "acc", ctx))
}
