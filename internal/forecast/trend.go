package forecast

import (
	"math"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
)

const (
	// trendWindow is the number of most recent records compared against the
	// same number of records before them.
	trendWindow = 7
	// Relative changes within ±trendNoiseBand are reported as stable.
	trendNoiseBand = 0.10
)

// AnalyzeTrend compares the average of the last seven records with the seven
// before them. history must be ordered oldest first.
func AnalyzeTrend(history []domain.SalesRecord) domain.TrendResult {
	stable := domain.TrendResult{Direction: domain.TrendStable, Impact: 0}

	n := len(history)
	if n < 2 {
		return stable
	}

	recent := history[max(0, n-trendWindow):]
	prior := history[max(0, n-2*trendWindow):max(0, n-trendWindow)]
	if len(prior) == 0 {
		return stable
	}

	recentAvg := meanQuantity(recent)
	olderAvg := meanQuantity(prior)
	if olderAvg <= 0 {
		return stable
	}

	change := (recentAvg - olderAvg) / olderAvg
	switch {
	case change > trendNoiseBand:
		return domain.TrendResult{Direction: domain.TrendIncreasing, Impact: math.Min(change, 1)}
	case change < -trendNoiseBand:
		return domain.TrendResult{Direction: domain.TrendDecreasing, Impact: math.Max(change, -1)}
	default:
		return stable
	}
}
