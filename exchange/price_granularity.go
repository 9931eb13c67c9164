package exchange

import (
	"errors"

	"github.com/prebid/auction-core/openrtb_ext"
	"github.com/shopspring/decimal"
)

// GetCpmStringValue is the externally facing function for computing CPM buckets.
// Prices above the top of the granularity are capped at it. Prices no range covers yield an empty string.
func GetCpmStringValue(cpm float64, config openrtb_ext.PriceGranularity) (string, error) {
	if len(config.Ranges) == 0 {
		return "", errors.New("price granularity has no ranges")
	}

	precision := int32(openrtb_ext.DefaultPriceGranularityPrecision)
	if config.Precision != nil {
		precision = int32(*config.Precision)
	}

	bucketMax := config.Ranges[0].Max
	for _, r := range config.Ranges[1:] {
		if r.Max > bucketMax {
			bucketMax = r.Max
		}
	}
	if cpm > bucketMax {
		return decimal.NewFromFloat(bucketMax).StringFixed(precision), nil
	}

	for _, r := range config.Ranges {
		if cpm >= r.Min && cpm <= r.Max {
			return getCpmTarget(cpm, r.Increment, precision), nil
		}
	}
	return "", nil
}

func getCpmTarget(cpm float64, increment float64, precision int32) string {
	inc := decimal.NewFromFloat(increment)
	return decimal.NewFromFloat(cpm).Div(inc).Floor().Mul(inc).StringFixed(precision)
}
