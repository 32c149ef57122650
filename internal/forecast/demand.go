package forecast

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/llm"
	"github.com/rs/zerolog/log"
)

const (
	PurposeDemandEstimate = "demand_estimate"

	defaultDemandTemperature = 0.2
)

var (
	errNoDemandNumber = errors.New("no demand quantity in response")

	leadingNumber = regexp.MustCompile(`^[+-]?(\d{1,3}(,\d{3})+|\d+)(\.\d+)?`)
)

// DemandInput is the context handed to the model for a demand estimate.
type DemandInput struct {
	Product       domain.Product
	Trend         domain.TrendResult
	Seasonality   domain.SeasonalityResult
	MarketFactors []domain.MarketFactor
	Timeframe     string
}

// DemandEstimate is the estimated quantity and whether it came from the
// reorder point fallback.
type DemandEstimate struct {
	PredictedDemand int
	Fallback        bool
}

// DemandEstimator asks the model for a single demand number.
type DemandEstimator struct {
	gen         llm.Generator
	temperature float64
	timeout     time.Duration
	recorder    Recorder
}

func NewDemandEstimator(gen llm.Generator, temperature float64, timeout time.Duration, rec Recorder) *DemandEstimator {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &DemandEstimator{gen: gen, temperature: temperature, timeout: timeout, recorder: rec}
}

// Estimate never fails. When the model cannot be reached or answers with
// something other than a number, the product's reorder point is used.
func (e *DemandEstimator) Estimate(ctx context.Context, in DemandInput) DemandEstimate {
	fallback := DemandEstimate{PredictedDemand: max(0, in.Product.Inventory.ReorderPoint), Fallback: true}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := generate(callCtx, e.gen, demandPrompt(in), llm.Options{
		Temperature: e.temperature,
		Purpose:     PurposeDemandEstimate,
	})
	if err != nil {
		log.Warn().Err(err).Str("product_id", in.Product.ID).Msg("demand estimate: generation failed, using reorder point")
		e.recorder.ObserveFallback(PurposeDemandEstimate)
		return fallback
	}

	demand, err := ParseDemand(text)
	if err != nil {
		log.Warn().Err(err).Str("product_id", in.Product.ID).Str("response", truncate(text, 80)).
			Msg("demand estimate: unparseable response, using reorder point")
		e.recorder.ObserveFallback(PurposeDemandEstimate)
		return fallback
	}

	return DemandEstimate{PredictedDemand: demand}
}

// ParseDemand reads the number at the start of a model answer such as "120",
// "1,250 units" or "87.6". Fractions are truncated and negative values become 0.
func ParseDemand(text string) (int, error) {
	s := stripCodeFence(text)
	s = strings.Trim(s, "\"'` \t\r\n")
	s = strings.TrimSuffix(s, ".")

	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, errNoDemandNumber
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil || !finite(v) {
		return 0, errNoDemandNumber
	}
	if v <= 0 {
		return 0, nil
	}
	if v >= math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(math.Trunc(v)), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
