package prebid_cache_client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/errortypes"
	"github.com/prebid/auction-core/events"
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls int
	puts  []Cacheable
	uuids []string
	errs  []error
}

func (c *fakeClient) PutJson(ctx context.Context, values []Cacheable) ([]string, *openrtb_ext.ExtHttpCall, []error) {
	c.calls++
	c.puts = values
	return c.uuids, &openrtb_ext.ExtHttpCall{Uri: "http://cache.example.com/cache", Status: 200}, c.errs
}

func (c *fakeClient) GetExtCacheData() (string, string, string) {
	return "https", "cache.example.com", "/cache"
}

var hostTTLs = config.DefaultTTLs{Banner: 300, Video: 1500, Native: 300, Audio: 300}

func candidate(bidder string, bid *openrtb2.Bid, bidType openrtb_ext.BidType) entities.CacheCandidate {
	return entities.CacheCandidate{
		Bidder: openrtb_ext.BidderName(bidder),
		Bid:    &entities.PbsOrtbBid{Bid: bid, BidType: bidType},
	}
}

func TestCacheBidsJSONAndVAST(t *testing.T) {
	client := &fakeClient{uuids: []string{"uuid-banner", "uuid-video", "uuid-video-xml"}}
	service := NewBidCacheService(client, events.NewService("http://pbs.example.com"), hostTTLs)

	banner := &openrtb2.Bid{ID: "b1", ImpID: "imp1", Price: 1, AdM: "<div></div>"}
	video := &openrtb2.Bid{ID: "v1", ImpID: "imp2", Price: 2, AdM: "<VAST><Impression></Impression></VAST>"}
	candidates := []entities.CacheCandidate{
		candidate("appnexus", banner, openrtb_ext.BidTypeBanner),
		candidate("rubicon", video, openrtb_ext.BidTypeVideo),
	}
	cacheContext := CacheContext{
		CacheBids:      true,
		CacheVideoBids: true,
		BidderToBidIDs: map[openrtb_ext.BidderName][]string{"appnexus": {"b1"}, "rubicon": {"v1"}},
		BidderToVideoBidIDsToModify: map[openrtb_ext.BidderName][]string{
			"rubicon": {"v1"},
		},
	}
	account := &config.Account{ID: "acc"}
	eventsContext := events.EventsContext{EnabledForAccount: true, AuctionTimestampMs: 1000}

	result := service.CacheBids(context.Background(), candidates, []openrtb2.Imp{{ID: "imp1"}, {ID: "imp2"}}, cacheContext, account, eventsContext)

	assert.Equal(t, 1, client.calls, "the cache must be called exactly once")
	require.Len(t, client.puts, 3)
	assert.Nil(t, result.Error)
	assert.NotNil(t, result.HttpCall)
	assert.Equal(t, map[entities.BidKey]entities.CacheInfo{
		{Bidder: "appnexus", BidID: "b1", ImpID: "imp1"}: {CacheID: "uuid-banner"},
		{Bidder: "rubicon", BidID: "v1", ImpID: "imp2"}:  {CacheID: "uuid-video", VastCacheID: "uuid-video-xml"},
	}, result.CacheIDs)

	assert.Equal(t, TypeJSON, client.puts[0].Type)
	assert.Equal(t, int64(300), client.puts[0].TTLSeconds)
	var cachedBid map[string]interface{}
	require.NoError(t, json.Unmarshal(client.puts[0].Data, &cachedBid))
	assert.Equal(t, "http://pbs.example.com/event?t=win&b=b1&a=acc&bidder=appnexus&ts=1000", cachedBid["wurl"])

	assert.Equal(t, TypeXML, client.puts[2].Type)
	assert.Equal(t, int64(1500), client.puts[2].TTLSeconds)
	var vast string
	require.NoError(t, json.Unmarshal(client.puts[2].Data, &vast))
	assert.Equal(t, "<VAST><Impression><![CDATA[http://pbs.example.com/event?t=imp&b=v1&a=acc&bidder=rubicon&f=b&ts=1000]]></Impression></VAST>", vast)
}

func TestCacheBidsNothingToPut(t *testing.T) {
	client := &fakeClient{}
	service := NewBidCacheService(client, nil, hostTTLs)

	bid := &openrtb2.Bid{ID: "b1", ImpID: "imp1", Price: 1}
	result := service.CacheBids(context.Background(),
		[]entities.CacheCandidate{candidate("appnexus", bid, openrtb_ext.BidTypeBanner)},
		[]openrtb2.Imp{{ID: "imp1"}},
		CacheContext{CacheVideoBids: true, BidderToBidIDs: map[openrtb_ext.BidderName][]string{"appnexus": {"b1"}}},
		&config.Account{}, events.EventsContext{})

	assert.Equal(t, 0, client.calls)
	assert.Empty(t, result.CacheIDs)
	assert.Nil(t, result.HttpCall)
	assert.Nil(t, result.Error)
}

func TestCacheBidsSkipsUnknownBids(t *testing.T) {
	client := &fakeClient{uuids: []string{"uuid-kept"}}
	service := NewBidCacheService(client, nil, hostTTLs)

	kept := &openrtb2.Bid{ID: "kept", ImpID: "imp1", Price: 1}
	dropped := &openrtb2.Bid{ID: "dropped", ImpID: "imp1", Price: 1}
	result := service.CacheBids(context.Background(),
		[]entities.CacheCandidate{
			candidate("appnexus", kept, openrtb_ext.BidTypeBanner),
			candidate("appnexus", dropped, openrtb_ext.BidTypeBanner),
		},
		[]openrtb2.Imp{{ID: "imp1"}},
		CacheContext{CacheBids: true, BidderToBidIDs: map[openrtb_ext.BidderName][]string{"appnexus": {"kept"}}},
		&config.Account{}, events.EventsContext{})

	require.Len(t, client.puts, 1)
	assert.Equal(t, "kept", client.puts[0].BidID)
	assert.Len(t, result.CacheIDs, 1)
}

func TestCacheBidsErrorIsReported(t *testing.T) {
	client := &fakeClient{uuids: []string{""}, errs: []error{errors.New("Prebid Cache call returned 500")}}
	service := NewBidCacheService(client, nil, hostTTLs)

	bid := &openrtb2.Bid{ID: "b1", ImpID: "imp1", Price: 1}
	result := service.CacheBids(context.Background(),
		[]entities.CacheCandidate{candidate("appnexus", bid, openrtb_ext.BidTypeBanner)},
		[]openrtb2.Imp{{ID: "imp1"}},
		CacheContext{CacheBids: true, BidderToBidIDs: map[openrtb_ext.BidderName][]string{"appnexus": {"b1"}}},
		&config.Account{}, events.EventsContext{})

	assert.Empty(t, result.CacheIDs)
	require.Error(t, result.Error)
	assert.Equal(t, errortypes.FailedToCacheBidsErrorCode, errortypes.ReadCode(result.Error))
	assert.Equal(t, "Prebid Cache call returned 500", result.Error.Error())
}

func TestResolveTTL(t *testing.T) {
	requestTTL := int64(60)
	testCases := []struct {
		description string
		bid         *openrtb2.Bid
		imp         *openrtb2.Imp
		requestTTL  *int64
		expected    int64
	}{
		{
			description: "bid exp wins",
			bid:         &openrtb2.Bid{Exp: 10},
			imp:         &openrtb2.Imp{Exp: 20},
			requestTTL:  &requestTTL,
			expected:    10,
		},
		{
			description: "imp exp next",
			bid:         &openrtb2.Bid{},
			imp:         &openrtb2.Imp{Exp: 20},
			requestTTL:  &requestTTL,
			expected:    20,
		},
		{
			description: "request ttl next",
			bid:         &openrtb2.Bid{},
			imp:         &openrtb2.Imp{},
			requestTTL:  &requestTTL,
			expected:    60,
		},
		{
			description: "media type default last",
			bid:         &openrtb2.Bid{},
			expected:    300,
		},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, resolveTTL(test.bid, test.imp, test.requestTTL, 300), test.description)
	}
}

func TestMediaTypeTTL(t *testing.T) {
	service := NewBidCacheService(&fakeClient{}, nil, hostTTLs)

	assert.Equal(t, int64(1500), service.mediaTypeTTL(&config.Account{}, openrtb_ext.BidTypeVideo))
	assert.Equal(t, int64(90), service.mediaTypeTTL(&config.Account{CacheTTL: config.DefaultTTLs{Video: 90}}, openrtb_ext.BidTypeVideo))
	assert.Equal(t, int64(300), service.mediaTypeTTL(nil, openrtb_ext.BidTypeBanner))
}

func TestMakeVAST(t *testing.T) {
	assert.Equal(t, "<VAST></VAST>", makeVAST(&openrtb2.Bid{AdM: "<VAST></VAST>"}))
	assert.Equal(t, `<VAST version="3.0"><Ad><Wrapper><AdSystem>prebid.org wrapper</AdSystem>`+
		`<VASTAdTagURI><![CDATA[http://nurl.example.com]]></VASTAdTagURI><Impression></Impression><Creatives></Creatives>`+
		`</Wrapper></Ad></VAST>`, makeVAST(&openrtb2.Bid{NURL: "http://nurl.example.com"}))
}

func TestGetExtCacheData(t *testing.T) {
	service := NewBidCacheService(&fakeClient{}, nil, hostTTLs)
	scheme, host, path := service.GetExtCacheData()
	assert.Equal(t, "https", scheme)
	assert.Equal(t, "cache.example.com", host)
	assert.Equal(t, "/cache", path)
}
