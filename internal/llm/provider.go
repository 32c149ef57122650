package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// New returns the generator named by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenAI, "":
		return NewOpenAI(cfg)
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	case ProviderNone, "disabled":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Recorder receives per-request observations.
type Recorder interface {
	ObserveLLMRequest(purpose, outcome string, duration time.Duration)
}

type instrumented struct {
	next     Generator
	recorder Recorder
}

// Instrument wraps gen so that every call is reported to rec.
func Instrument(gen Generator, rec Recorder) Generator {
	if rec == nil {
		return gen
	}
	return &instrumented{next: gen, recorder: rec}
}

func (g *instrumented) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	start := time.Now()
	text, err := g.next.Generate(ctx, prompt, opts)
	g.recorder.ObserveLLMRequest(purposeLabel(opts.Purpose), Outcome(err), time.Since(start))
	return text, err
}

// Close forwards to the wrapped generator when it holds resources.
func (g *instrumented) Close() error {
	if c, ok := g.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Outcome buckets an error for metric labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	case errors.Is(err, ErrDisabled):
		return "disabled"
	default:
		return "error"
	}
}

func purposeLabel(p string) string {
	if p == "" {
		return "unspecified"
	}
	return p
}
