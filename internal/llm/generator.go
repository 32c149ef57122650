// Package llm abstracts the text-generation providers used by the forecaster.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when a provider answers without any text.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrDisabled is returned by the "none" provider.
	ErrDisabled = errors.New("llm: provider disabled")
)

// Options tune a single generation request.
type Options struct {
	Temperature float64
	// Purpose labels the call for logs and metrics, e.g. "market_factors".
	Purpose string
}

// Generator turns a prompt into text. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Disabled is a Generator that always fails. It lets the forecaster run on
// its deterministic fallbacks when no provider is configured.
type Disabled struct{}

func (Disabled) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return "", ErrDisabled
}
