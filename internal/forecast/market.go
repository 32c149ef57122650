package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/llm"
	"github.com/rs/zerolog/log"
)

const (
	PurposeMarketFactors = "market_factors"

	defaultMarketTemperature = 0.3
)

var errNoFactorArray = errors.New("no market factor array in response")

// MarketFactorClient asks the model for qualitative demand drivers. It never
// fails: any problem yields an empty list.
type MarketFactorClient struct {
	gen         llm.Generator
	temperature float64
	timeout     time.Duration
	recorder    Recorder
}

func NewMarketFactorClient(gen llm.Generator, temperature float64, timeout time.Duration, rec Recorder) *MarketFactorClient {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &MarketFactorClient{gen: gen, temperature: temperature, timeout: timeout, recorder: rec}
}

// Fetch returns the parsed market factors for product, or an empty slice.
func (c *MarketFactorClient) Fetch(ctx context.Context, product domain.Product) []domain.MarketFactor {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := generate(callCtx, c.gen, marketFactorPrompt(product), llm.Options{
		Temperature: c.temperature,
		Purpose:     PurposeMarketFactors,
	})
	if err != nil {
		log.Warn().Err(err).Str("product_id", product.ID).Msg("market factors: generation failed")
		c.recorder.ObserveFallback(PurposeMarketFactors)
		return []domain.MarketFactor{}
	}

	factors, err := ParseMarketFactors(text)
	if err != nil {
		log.Warn().Err(err).Str("product_id", product.ID).Msg("market factors: unparseable response")
		c.recorder.ObserveFallback(PurposeMarketFactors)
		return []domain.MarketFactor{}
	}

	return factors
}

type rawMarketFactor struct {
	Name        string          `json:"name"`
	Factor      string          `json:"factor"`
	Impact      json.RawMessage `json:"impact"`
	Description string          `json:"description"`
}

// ParseMarketFactors decodes model output into market factors. It accepts a
// bare JSON array, an object with a "factors" array, or either wrapped in a
// code fence or surrounding prose. Impacts are clamped to [-1, 1] and entries
// without a name are dropped.
func ParseMarketFactors(text string) ([]domain.MarketFactor, error) {
	body := stripCodeFence(text)
	if body == "" {
		return nil, fmt.Errorf("empty market factor response")
	}

	raw, err := decodeFactorArray([]byte(body))
	if err != nil {
		start := strings.IndexByte(body, '[')
		end := strings.LastIndexByte(body, ']')
		if start < 0 || end <= start {
			return nil, errNoFactorArray
		}
		raw, err = decodeFactorArray([]byte(body[start : end+1]))
		if err != nil {
			return nil, fmt.Errorf("decode market factors: %w", err)
		}
	}

	factors := make([]domain.MarketFactor, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = strings.TrimSpace(r.Factor)
		}
		if name == "" {
			continue
		}
		factors = append(factors, domain.MarketFactor{
			Name:        name,
			Impact:      parseImpact(r.Impact),
			Description: strings.TrimSpace(r.Description),
		})
	}
	return factors, nil
}

func decodeFactorArray(data []byte) ([]rawMarketFactor, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Factors []rawMarketFactor `json:"factors"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Factors == nil {
			return nil, errNoFactorArray
		}
		return wrapped.Factors, nil
	}

	var list []rawMarketFactor
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// parseImpact reads a number or numeric string; anything else counts as 0.
func parseImpact(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		v = parsed
	}

	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, -1, 1)
}
