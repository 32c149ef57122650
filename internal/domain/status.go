package domain

// TrendDirection classifies short-window sales movement.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

var trendDirectionLabels = map[TrendDirection]string{
	TrendIncreasing: "Increasing",
	TrendDecreasing: "Decreasing",
	TrendStable:     "Stable",
}

// Label returns a human-readable label for a trend direction.
func (d TrendDirection) Label() string {
	if label, ok := trendDirectionLabels[d]; ok {
		return label
	}

	return "Unknown"
}

// Names of the statistical factors every prediction starts with.
const (
	FactorSalesTrend  = "Sales Trend"
	FactorSeasonality = "Seasonality"
)

// SalesTrend reads the trend direction back from the Sales Trend factor.
// Predictions without one report an empty direction.
func (p InventoryPrediction) SalesTrend() TrendDirection {
	for _, f := range p.Factors {
		if f.Factor != FactorSalesTrend {
			continue
		}
		switch {
		case f.Impact > 0:
			return TrendIncreasing
		case f.Impact < 0:
			return TrendDecreasing
		default:
			return TrendStable
		}
	}
	return ""
}
