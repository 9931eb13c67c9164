package openrtb_ext

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ExtRequest defines the contract for bidrequest.ext
type ExtRequest struct {
	Prebid ExtRequestPrebid `json:"prebid"`
}

// ExtRequestPrebid defines the contract for bidrequest.ext.prebid
type ExtRequestPrebid struct {
	Cache       *ExtRequestPrebidCache   `json:"cache,omitempty"`
	Targeting   *ExtRequestTargeting     `json:"targeting,omitempty"`
	Events      json.RawMessage          `json:"events,omitempty"`
	Channel     *ExtRequestPrebidChannel `json:"channel,omitempty"`
	Integration string                   `json:"integration,omitempty"`
	Debug       bool                     `json:"debug,omitempty"`
	// Trace controls the deep debug output. "verbose" includes the deal trace.
	Trace string `json:"trace,omitempty"`
}

const TraceVerbose = "verbose"

// ExtRequestPrebidChannel defines the contract for bidrequest.ext.prebid.channel
type ExtRequestPrebidChannel struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ExtRequestPrebidCache defines the contract for bidrequest.ext.prebid.cache
type ExtRequestPrebidCache struct {
	Bids        *ExtRequestPrebidCacheBids `json:"bids,omitempty"`
	VastXML     *ExtRequestPrebidCacheVAST `json:"vastxml,omitempty"`
	WinningOnly *bool                      `json:"winningonly,omitempty"`
}

// UnmarshalJSON prevents nil bids arguments.
func (ert *ExtRequestPrebidCache) UnmarshalJSON(b []byte) error {
	type typesAlias ExtRequestPrebidCache // Prevents infinite UnmarshalJSON loops
	var proxy typesAlias
	if err := json.Unmarshal(b, &proxy); err != nil {
		return err
	}

	if proxy.Bids == nil && proxy.VastXML == nil {
		return errors.New(`request.ext.prebid.cache requires one of the "bids" or "vastxml" properties`)
	}

	*ert = ExtRequestPrebidCache(proxy)
	return nil
}

// ExtRequestPrebidCacheBids defines the contract for bidrequest.ext.prebid.cache.bids
type ExtRequestPrebidCacheBids struct {
	TTLSeconds     int64 `json:"ttlseconds,omitempty"`
	ReturnCreative *bool `json:"returnCreative,omitempty"`
}

// ExtRequestPrebidCacheVAST defines the contract for bidrequest.ext.prebid.cache.vastxml
type ExtRequestPrebidCacheVAST struct {
	TTLSeconds     int64 `json:"ttlseconds,omitempty"`
	ReturnCreative *bool `json:"returnCreative,omitempty"`
}

// ExtRequestTargeting defines the contract for bidrequest.ext.prebid.targeting
type ExtRequestTargeting struct {
	PriceGranularity          *PriceGranularity          `json:"pricegranularity,omitempty"`
	MediaTypePriceGranularity *MediaTypePriceGranularity `json:"mediatypepricegranularity,omitempty"`
	IncludeWinners            *bool                      `json:"includewinners,omitempty"`
	IncludeBidderKeys         *bool                      `json:"includebidderkeys,omitempty"`
	MaxLength                 int                        `json:"lengthmax,omitempty"`
}

// MediaTypePriceGranularity defines the contract for bidrequest.ext.prebid.targeting.mediatypepricegranularity
type MediaTypePriceGranularity struct {
	Banner *PriceGranularity `json:"banner,omitempty"`
	Video  *PriceGranularity `json:"video,omitempty"`
	Native *PriceGranularity `json:"native,omitempty"`
}

// ForType returns the override for the bid type, or nil if the request has none.
func (m *MediaTypePriceGranularity) ForType(bidType BidType) *PriceGranularity {
	if m == nil {
		return nil
	}
	switch bidType {
	case BidTypeBanner:
		return m.Banner
	case BidTypeVideo:
		return m.Video
	case BidTypeNative:
		return m.Native
	}
	return nil
}

// PriceGranularity defines the allowed values for bidrequest.ext.prebid.targeting.pricegranularity
type PriceGranularity struct {
	Precision *int               `json:"precision,omitempty"`
	Ranges    []GranularityRange `json:"ranges,omitempty"`
}

// GranularityRange struct defines a range of prices used by PriceGranularity
type GranularityRange struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Increment float64 `json:"increment"`
}

const DefaultPriceGranularityPrecision = 2

// UnmarshalJSON accepts either a legacy granularity name or a {precision, ranges} object.
func (pg *PriceGranularity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		legacy, ok := priceGranularityFromString(name)
		if !ok {
			return fmt.Errorf("price granularity error: invalid granularity name %q", name)
		}
		*pg = legacy
		return nil
	}

	type typesAlias PriceGranularity
	var proxy typesAlias
	if err := json.Unmarshal(b, &proxy); err != nil {
		return err
	}
	if len(proxy.Ranges) == 0 {
		return errors.New("price granularity error: empty granularity definition supplied")
	}
	if proxy.Precision == nil {
		precision := DefaultPriceGranularityPrecision
		proxy.Precision = &precision
	} else if *proxy.Precision < 0 {
		return errors.New("price granularity error: precision must be non-negative")
	}

	var prevMax float64
	for i, r := range proxy.Ranges {
		if r.Max <= prevMax {
			return errors.New("price granularity error: range list must be ordered with increasing \"max\"")
		}
		if r.Increment <= 0 {
			return errors.New("price granularity error: increment must be a nonzero positive number")
		}
		proxy.Ranges[i].Min = prevMax
		prevMax = r.Max
	}

	*pg = PriceGranularity(proxy)
	return nil
}

// PriceGranularityFromString converts a legacy granularity name into a PriceGranularity.
// Unknown names produce an empty PriceGranularity.
func PriceGranularityFromString(name string) PriceGranularity {
	pg, _ := priceGranularityFromString(name)
	return pg
}

// NewPriceGranularityDefault returns the "medium" granularity.
func NewPriceGranularityDefault() PriceGranularity {
	return PriceGranularityFromString("medium")
}

func priceGranularityFromString(name string) (PriceGranularity, bool) {
	precision := DefaultPriceGranularityPrecision
	switch name {
	case "low":
		return PriceGranularity{
			Precision: &precision,
			Ranges:    []GranularityRange{{Min: 0, Max: 5, Increment: 0.5}},
		}, true
	case "med", "medium":
		return PriceGranularity{
			Precision: &precision,
			Ranges:    []GranularityRange{{Min: 0, Max: 20, Increment: 0.1}},
		}, true
	case "high":
		return PriceGranularity{
			Precision: &precision,
			Ranges:    []GranularityRange{{Min: 0, Max: 20, Increment: 0.01}},
		}, true
	case "auto":
		return PriceGranularity{
			Precision: &precision,
			Ranges: []GranularityRange{
				{Min: 0, Max: 5, Increment: 0.05},
				{Min: 5, Max: 10, Increment: 0.1},
				{Min: 10, Max: 20, Increment: 0.5},
			},
		}, true
	case "dense":
		return PriceGranularity{
			Precision: &precision,
			Ranges: []GranularityRange{
				{Min: 0, Max: 3, Increment: 0.01},
				{Min: 3, Max: 8, Increment: 0.05},
				{Min: 8, Max: 20, Increment: 0.5},
			},
		}, true
	}
	return PriceGranularity{}, false
}
