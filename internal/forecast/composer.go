package forecast

import (
	"fmt"
	"math"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
)

const (
	baseConfidence        = 0.5
	stableBonus           = 0.2
	lowTrendImpactBonus   = 0.1
	strongSeasonBonus     = 0.1
	lowTrendImpactCutoff  = 0.3
	strongSeasonThreshold = 0.2

	// reorderBuffer pads predicted demand when sizing a reorder.
	reorderBuffer = 1.2
)

// ComposeInput carries every intermediate result of a prediction.
type ComposeInput struct {
	Product       domain.Product
	Timeframe     string
	Trend         domain.TrendResult
	Seasonality   domain.SeasonalityResult
	MarketFactors []domain.MarketFactor
	Demand        int
}

// Compose assembles the final prediction. It is pure.
func Compose(in ComposeInput) domain.InventoryPrediction {
	demand := max(0, in.Demand)
	return domain.InventoryPrediction{
		ProductID:                in.Product.ID,
		PredictedDemand:          demand,
		Confidence:               ConfidenceScore(in.Trend, in.Seasonality),
		Timeframe:                in.Timeframe,
		SuggestedReorderQuantity: ReorderQuantity(demand, in.Product.Inventory),
		Factors:                  buildFactors(in),
	}
}

// ConfidenceScore applies the additive heuristic. A stable trend also has a
// small impact, so it earns both trend bonuses. The raw sum is returned
// unrounded, so a stable trend scores 0.7999999999999999.
// TODO: recalibrate once predictions can be compared with realised sales.
func ConfidenceScore(trend domain.TrendResult, season domain.SeasonalityResult) float64 {
	c := baseConfidence
	if trend.Direction == domain.TrendStable {
		c += stableBonus
	}
	if math.Abs(trend.Impact) < lowTrendImpactCutoff {
		c += lowTrendImpactBonus
	}
	if math.Abs(season.Impact) > strongSeasonThreshold {
		c += strongSeasonBonus
	}
	return clamp(c, 0, 1)
}

// ReorderQuantity is the buffered demand capped by the room left between the
// reorder point and max stock, never negative.
func ReorderQuantity(demand int, inv domain.InventoryState) int {
	capacity := float64(inv.MaxStock - inv.ReorderPoint)
	q := math.Min(float64(demand)*reorderBuffer, capacity)
	return int(math.Round(math.Max(0, q)))
}

func buildFactors(in ComposeInput) []domain.PredictionFactor {
	factors := make([]domain.PredictionFactor, 0, 2+len(in.MarketFactors))
	factors = append(factors,
		domain.PredictionFactor{
			Factor:      domain.FactorSalesTrend,
			Impact:      in.Trend.Impact,
			Description: fmt.Sprintf("%s trend over last %s", in.Trend.Direction, in.Timeframe),
		},
		domain.PredictionFactor{
			Factor:      domain.FactorSeasonality,
			Impact:      in.Seasonality.Impact,
			Description: in.Seasonality.Description,
		},
	)
	for _, mf := range in.MarketFactors {
		factors = append(factors, domain.PredictionFactor{
			Factor:      mf.Name,
			Impact:      mf.Impact,
			Description: mf.Description,
		})
	}
	return factors
}
