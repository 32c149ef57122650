package forecast

import (
	"fmt"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
)

const noSeasonalPattern = "No seasonal pattern detected"

// SeasonalityAnalyzer compares the current calendar month's average demand
// against the average of all months present in a history. Years are merged.
type SeasonalityAnalyzer struct {
	now func() time.Time
}

// NewSeasonalityAnalyzer creates an analyzer. A nil clock means time.Now.
func NewSeasonalityAnalyzer(now func() time.Time) *SeasonalityAnalyzer {
	if now == nil {
		now = time.Now
	}
	return &SeasonalityAnalyzer{now: now}
}

// Analyze returns the clamped deviation of the current month from the mean
// of per-month averages. Every month with data weighs the same regardless of
// how many records it holds. Months are taken in UTC on both sides.
func (a *SeasonalityAnalyzer) Analyze(history []domain.SalesRecord) domain.SeasonalityResult {
	none := domain.SeasonalityResult{Impact: 0, Description: noSeasonalPattern}

	monthly := monthlyAverages(history)
	current, ok := monthly[a.now().UTC().Month()]
	if !ok {
		return none
	}

	var total float64
	for _, avg := range monthly {
		total += avg
	}
	overall := total / float64(len(monthly))
	if overall == 0 {
		return none
	}

	raw := (current - overall) / overall
	direction := "lower"
	if raw > 0 {
		direction = "higher"
	}

	return domain.SeasonalityResult{
		Impact:      clamp(raw, -1, 1),
		Description: fmt.Sprintf("Current month shows %s than average demand", direction),
	}
}

func monthlyAverages(history []domain.SalesRecord) map[time.Month]float64 {
	sums := make(map[time.Month]int)
	counts := make(map[time.Month]int)
	for _, r := range history {
		m := r.Date.UTC().Month()
		sums[m] += r.Quantity
		counts[m]++
	}

	avgs := make(map[time.Month]float64, len(sums))
	for m, sum := range sums {
		avgs[m] = float64(sum) / float64(counts[m])
	}
	return avgs
}
