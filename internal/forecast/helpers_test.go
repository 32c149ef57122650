package forecast

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/llm"
	"github.com/stretchr/testify/mock"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}

func purpose(p string) interface{} {
	return mock.MatchedBy(func(o llm.Options) bool { return o.Purpose == p })
}

type funcGenerator func(ctx context.Context, prompt string, opts llm.Options) (string, error)

func (f funcGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	return f(ctx, prompt, opts)
}

type countingRecorder struct {
	mu          sync.Mutex
	predictions map[string]int
	fallbacks   map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{predictions: map[string]int{}, fallbacks: map[string]int{}}
}

func (r *countingRecorder) ObservePrediction(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions[outcome]++
}

func (r *countingRecorder) ObserveFallback(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks[stage]++
}

// daily builds consecutive daily records ending the day before end.
func daily(end time.Time, quantities ...int) []domain.SalesRecord {
	records := make([]domain.SalesRecord, len(quantities))
	start := end.AddDate(0, 0, -len(quantities))
	for i, q := range quantities {
		records[i] = domain.SalesRecord{Date: start.AddDate(0, 0, i), Quantity: q}
	}
	return records
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func repeat(q, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = q
	}
	return out
}
