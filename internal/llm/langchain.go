package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultMaxTokens = 1024

// LangChainGenerator adapts any langchaingo model to Generator.
type LangChainGenerator struct {
	model     llms.Model
	maxTokens int
}

// NewLangChainGenerator wraps an existing langchaingo model.
func NewLangChainGenerator(model llms.Model) *LangChainGenerator {
	return &LangChainGenerator{model: model, maxTokens: defaultMaxTokens}
}

// NewOpenAI builds a generator for OpenAI or any OpenAI-compatible endpoint.
// When no API key is configured langchaingo falls back to OPENAI_API_KEY.
func NewOpenAI(cfg config.LLMConfig) (*LangChainGenerator, error) {
	opts := []openai.Option{}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return NewLangChainGenerator(client), nil
}

func (g *LangChainGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := g.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	},
		llms.WithTemperature(opts.Temperature),
		llms.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}
