package forecast

import "github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"

// reorderHorizonDays flags products that will run out within a week.
const reorderHorizonDays = 7

// Outlook projects current stock against the predicted daily demand rate.
func Outlook(pred domain.InventoryPrediction, inv domain.InventoryState) (domain.StockOutlook, error) {
	days, err := domain.ParseTimeframe(pred.Timeframe)
	if err != nil {
		return domain.StockOutlook{}, err
	}

	out := domain.StockOutlook{
		DailyDemand:   roundFloat(float64(pred.PredictedDemand)/float64(days), 2),
		ShouldReorder: inv.CurrentStock <= inv.ReorderPoint,
	}

	if pred.PredictedDemand > 0 {
		daily := float64(pred.PredictedDemand) / float64(days)
		d := roundFloat(float64(max(0, inv.CurrentStock))/daily, 1)
		out.DaysUntilStockout = &d
		if d <= reorderHorizonDays {
			out.ShouldReorder = true
		}
	}
	return out, nil
}
