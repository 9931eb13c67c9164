package exchange

import (
	"strconv"

	"github.com/golang/glog"
	"github.com/prebid/auction-core/config"
	"github.com/prebid/auction-core/exchange/entities"
	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// targetingKeywordsCreator makes the ad server keywords of bids priced with one granularity.
type targetingKeywordsCreator struct {
	priceGranularity  openrtb_ext.PriceGranularity
	includeWinners    bool
	includeBidderKeys bool
	isApp             bool
	lengthMax         int
	cacheHost         string
	cachePath         string
}

// targetingKeywordsResolver picks the creator matching a bid's media type.
type targetingKeywordsResolver struct {
	defaultCreator *targetingKeywordsCreator
	byType         map[openrtb_ext.BidType]*targetingKeywordsCreator
}

// newTargetingKeywordsResolver returns nil when the request didn't ask for targeting.
func newTargetingKeywordsResolver(targeting *openrtb_ext.ExtRequestTargeting, isApp bool, account *config.Account, cacheHost, cachePath string) *targetingKeywordsResolver {
	if targeting == nil {
		return nil
	}

	lengthMax := targeting.MaxLength
	if lengthMax == 0 && account != nil {
		lengthMax = account.TruncateTargetAttr
	}

	newCreator := func(pg openrtb_ext.PriceGranularity) *targetingKeywordsCreator {
		return &targetingKeywordsCreator{
			priceGranularity:  pg,
			includeWinners:    boolOrDefault(targeting.IncludeWinners, true),
			includeBidderKeys: boolOrDefault(targeting.IncludeBidderKeys, true),
			isApp:             isApp,
			lengthMax:         lengthMax,
			cacheHost:         cacheHost,
			cachePath:         cachePath,
		}
	}

	defaultGranularity := openrtb_ext.NewPriceGranularityDefault()
	if targeting.PriceGranularity != nil {
		defaultGranularity = *targeting.PriceGranularity
	}

	resolver := &targetingKeywordsResolver{
		defaultCreator: newCreator(defaultGranularity),
		byType:         make(map[openrtb_ext.BidType]*targetingKeywordsCreator),
	}
	for _, bidType := range openrtb_ext.BidTypes() {
		if pg := targeting.MediaTypePriceGranularity.ForType(bidType); pg != nil {
			resolver.byType[bidType] = newCreator(*pg)
		}
	}
	return resolver
}

func (r *targetingKeywordsResolver) forType(bidType openrtb_ext.BidType) *targetingKeywordsCreator {
	if creator, ok := r.byType[bidType]; ok {
		return creator
	}
	return r.defaultCreator
}

// makeKeywords returns the keywords of one bidder's best bid on an imp.
// The bidder-suffixed keys come with includeBidderKeys. The bare keys ("hb_pb") are only set on the
// overall winner, and only with includeWinners.
func (c *targetingKeywordsCreator) makeKeywords(bidder openrtb_ext.BidderName, bid *openrtb2.Bid, cacheInfo entities.CacheInfo, isWinner bool) map[string]string {
	values := make(map[openrtb_ext.TargetingKey]string)

	roundedCpm, err := GetCpmStringValue(bid.Price, c.priceGranularity)
	if err != nil {
		glog.Warningf("Unable to compute price bucket for bid %s from %s: %v", bid.ID, bidder, err)
	}
	values[openrtb_ext.HbpbConstantKey] = roundedCpm
	values[openrtb_ext.HbBidderConstantKey] = string(bidder)

	if bid.W != 0 && bid.H != 0 {
		values[openrtb_ext.HbSizeConstantKey] = strconv.FormatInt(bid.W, 10) + "x" + strconv.FormatInt(bid.H, 10)
	}
	if hasDeal(bid) {
		values[openrtb_ext.HbDealIdConstantKey] = bid.DealID
	}
	if cacheInfo.CacheID != "" {
		values[openrtb_ext.HbCacheKey] = cacheInfo.CacheID
	}
	if cacheInfo.VastCacheID != "" {
		values[openrtb_ext.HbVastCacheKey] = cacheInfo.VastCacheID
	}
	if !cacheInfo.IsEmpty() && c.cacheHost != "" && c.cachePath != "" {
		values[openrtb_ext.HbConstantCacheHostKey] = c.cacheHost
		values[openrtb_ext.HbConstantCachePathKey] = c.cachePath
	}
	if c.isApp {
		values[openrtb_ext.HbEnvKey] = openrtb_ext.HbEnvKeyApp
	}

	keywords := make(map[string]string, 2*len(values))
	for key, value := range values {
		if c.includeBidderKeys {
			keywords[key.BidderKey(bidder, c.lengthMax)] = value
		}
		if c.includeWinners && isWinner {
			keywords[key.WinningKey(c.lengthMax)] = value
		}
	}
	return keywords
}

func boolOrDefault(value *bool, defaultValue bool) bool {
	if value == nil {
		return defaultValue
	}
	return *value
}
