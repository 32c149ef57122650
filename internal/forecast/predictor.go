// Package forecast predicts inventory demand from sales history, calendar
// seasonality and model-provided market context.
package forecast

import (
	"context"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/llm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultCallTimeout = 20 * time.Second

// Predictor runs the full prediction pipeline. It holds no per-call state and
// is safe for concurrent use.
type Predictor struct {
	seasonality *SeasonalityAnalyzer
	market      *MarketFactorClient
	demand      *DemandEstimator
	recorder    Recorder
}

type predictorOptions struct {
	now               func() time.Time
	callTimeout       time.Duration
	marketTemperature float64
	demandTemperature float64
	recorder          Recorder
}

// Option configures a Predictor.
type Option func(*predictorOptions)

// WithClock sets the clock used to pick the current month.
func WithClock(now func() time.Time) Option {
	return func(o *predictorOptions) { o.now = now }
}

// WithCallTimeout bounds each model call. Non-positive values are ignored.
func WithCallTimeout(d time.Duration) Option {
	return func(o *predictorOptions) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithTemperatures sets the sampling temperatures of the market factor and
// demand calls.
func WithTemperatures(market, demand float64) Option {
	return func(o *predictorOptions) {
		o.marketTemperature = market
		o.demandTemperature = demand
	}
}

func WithRecorder(rec Recorder) Option {
	return func(o *predictorOptions) {
		if rec != nil {
			o.recorder = rec
		}
	}
}

// NewPredictor builds a Predictor around gen.
func NewPredictor(gen llm.Generator, opts ...Option) *Predictor {
	o := predictorOptions{
		now:               time.Now,
		callTimeout:       defaultCallTimeout,
		marketTemperature: defaultMarketTemperature,
		demandTemperature: defaultDemandTemperature,
		recorder:          nopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Predictor{
		seasonality: NewSeasonalityAnalyzer(o.now),
		market:      NewMarketFactorClient(gen, o.marketTemperature, o.callTimeout, o.recorder),
		demand:      NewDemandEstimator(gen, o.demandTemperature, o.callTimeout, o.recorder),
		recorder:    o.recorder,
	}
}

// PredictDemand forecasts demand for product over timeframe ("30d" when
// empty). history must be ordered oldest first. The only error it returns is
// a *PredictionError.
func (p *Predictor) PredictDemand(ctx context.Context, product domain.Product, history []domain.SalesRecord, timeframe string) (pred *domain.InventoryPrediction, err error) {
	timeframe = domain.NormalizeTimeframe(timeframe)

	defer func() {
		if r := recover(); r != nil {
			pred, err = nil, errors.Errorf("panic: %v", r)
		}
		if err != nil {
			p.recorder.ObservePrediction(OutcomeFailed)
			log.Error().Stack().Err(errors.WithStack(err)).
				Str("product_id", product.ID).
				Str("timeframe", timeframe).
				Msg("prediction failed")
			err = newPredictionError(product.ID, err)
			return
		}
		p.recorder.ObservePrediction(OutcomeSuccess)
	}()

	var (
		trend   domain.TrendResult
		season  domain.SeasonalityResult
		factors []domain.MarketFactor
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error {
		trend = AnalyzeTrend(history)
		return nil
	}))
	g.Go(guard(func() error {
		season = p.seasonality.Analyze(history)
		return nil
	}))
	g.Go(guard(func() error {
		factors = p.market.Fetch(gctx, product)
		return nil
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "analysis")
	}

	estimate := p.demand.Estimate(ctx, DemandInput{
		Product:       product,
		Trend:         trend,
		Seasonality:   season,
		MarketFactors: factors,
		Timeframe:     timeframe,
	})
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "demand estimate")
	}

	result := Compose(ComposeInput{
		Product:       product,
		Timeframe:     timeframe,
		Trend:         trend,
		Seasonality:   season,
		MarketFactors: factors,
		Demand:        estimate.PredictedDemand,
	})
	return &result, nil
}

// generate calls gen and reports a provider panic as an error, so the
// model stages fall back instead of failing the prediction.
func generate(ctx context.Context, gen llm.Generator, prompt string, opts llm.Options) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", errors.Errorf("generator panic: %v", r)
		}
	}()
	return gen.Generate(ctx, prompt, opts)
}

// guard turns a panic inside an errgroup goroutine into an error so it is
// reported through Wait instead of crashing the process.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}
}
