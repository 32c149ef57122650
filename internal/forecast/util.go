package forecast

import (
	"math"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
)

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// meanQuantity returns the arithmetic mean of quantities, or 0 for no records.
func meanQuantity(records []domain.SalesRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0
	for _, r := range records {
		sum += r.Quantity
	}
	return float64(sum) / float64(len(records))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
