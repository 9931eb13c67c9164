package openrtb_ext

import (
	"encoding/json"
	"fmt"
)

// ExtBid defines the contract for bidresponse.seatbid.bid[i].ext
type ExtBid struct {
	Prebid *ExtBidPrebid `json:"prebid,omitempty"`
}

// ExtBidPrebid defines the contract for bidresponse.seatbid.bid[i].ext.prebid
type ExtBidPrebid struct {
	BidId                   string              `json:"bidid,omitempty"`
	Cache                   *ExtBidPrebidCache  `json:"cache,omitempty"`
	Targeting               map[string]string   `json:"targeting,omitempty"`
	Type                    BidType             `json:"type"`
	Video                   *ExtBidPrebidVideo  `json:"video,omitempty"`
	Events                  *ExtBidPrebidEvents `json:"events,omitempty"`
	StoredRequestAttributes json.RawMessage     `json:"storedrequestattributes,omitempty"`
}

// ExtBidPrebidCache defines the contract for bidresponse.seatbid.bid[i].ext.prebid.cache
type ExtBidPrebidCache struct {
	Bids    *ExtBidPrebidCacheBids `json:"bids,omitempty"`
	VastXml *ExtBidPrebidCacheBids `json:"vastXml,omitempty"`
}

// ExtBidPrebidCacheBids defines the contract for bidresponse.seatbid.bid[i].ext.prebid.cache.{bids,vastXml}
type ExtBidPrebidCacheBids struct {
	Url     string `json:"url"`
	CacheId string `json:"cacheId"`
}

// ExtBidPrebidVideo defines the contract for bidresponse.seatbid.bid[i].ext.prebid.video
type ExtBidPrebidVideo struct {
	Duration        int    `json:"duration"`
	PrimaryCategory string `json:"primary_category"`
}

// ExtBidPrebidEvents defines the contract for bidresponse.seatbid.bid[i].ext.prebid.events
type ExtBidPrebidEvents struct {
	Win string `json:"win,omitempty"`
	Imp string `json:"imp,omitempty"`
}

// BidType describes the allowed values for bidresponse.seatbid.bid[i].ext.prebid.type
type BidType string

const (
	BidTypeBanner BidType = "banner"
	BidTypeVideo  BidType = "video"
	BidTypeAudio  BidType = "audio"
	BidTypeNative BidType = "native"
)

func BidTypes() []BidType {
	return []BidType{
		BidTypeBanner,
		BidTypeVideo,
		BidTypeAudio,
		BidTypeNative,
	}
}

func ParseBidType(bidType string) (BidType, error) {
	switch bidType {
	case "banner":
		return BidTypeBanner, nil
	case "video":
		return BidTypeVideo, nil
	case "audio":
		return BidTypeAudio, nil
	case "native":
		return BidTypeNative, nil
	default:
		return "", fmt.Errorf("invalid BidType: %s", bidType)
	}
}

// TargetingKeys are used throughout Prebid as keys which can be used in an ad server like DFP.
// Clients set the values we assign on the request to the ad server, where they can be substituted like macros into
// Creatives.
//
// Removing one of these, or changing the semantics of what we store there, will probably break the
// line item setups for many publishers.
type TargetingKey string

const (
	HbpbConstantKey TargetingKey = "hb_pb"

	// HbEnvKey exists to support the Prebid Universal Creative. If it exists, the only legal value is mobile-app.
	// It will exist only if the incoming bidRequest defined request.app instead of request.site.
	HbEnvKey TargetingKey = "hb_env"

	// HbBidderConstantKey is the name of the Bidder. For example, "appnexus" or "rubicon".
	HbBidderConstantKey TargetingKey = "hb_bidder"
	HbSizeConstantKey   TargetingKey = "hb_size"
	HbDealIdConstantKey TargetingKey = "hb_deal"

	// HbCacheKey and HbVastCacheKey store UUIDs which can be used to fetch things from prebid cache.
	// Callers should *never* assume that either of these exist, since the call to the cache may always fail.
	//
	// HbCacheKey's UUID will fetch the entire bid JSON, while HbVastCacheKey will fetch just the VAST XML.
	// HbVastCacheKey will only ever exist for Video bids.
	HbCacheKey     TargetingKey = "hb_cache_id"
	HbVastCacheKey TargetingKey = "hb_uuid"

	// HbConstantCacheHostKey and HbConstantCachePathKey tell the creative where to fetch cached assets from.
	HbConstantCacheHostKey TargetingKey = "hb_cache_host"
	HbConstantCachePathKey TargetingKey = "hb_cache_path"

	// This is not a key, but values used by the HbEnvKey
	HbEnvKeyApp string = "mobile-app"
)

// BidderKey returns the bidder-suffixed form of the key, cut down to maxLength when it is positive.
func (key TargetingKey) BidderKey(bidder BidderName, maxLength int) string {
	return truncate(string(key)+"_"+string(bidder), maxLength)
}

// WinningKey returns the un-suffixed key, cut down to maxLength when it is positive.
func (key TargetingKey) WinningKey(maxLength int) string {
	return truncate(string(key), maxLength)
}

func truncate(s string, maxLength int) string {
	if maxLength > 0 && len(s) > maxLength {
		return s[:maxLength]
	}
	return s
}
