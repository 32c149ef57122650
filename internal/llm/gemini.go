package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-pro"

// GeminiGenerator calls Google's Gemini API.
type GeminiGenerator struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a Gemini client from configuration.
func NewGemini(ctx context.Context, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: LLM_API_KEY must be provided")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" || strings.HasPrefix(modelName, "gpt-") {
		modelName = defaultGeminiModel
	}

	return &GeminiGenerator{client: client, modelName: modelName}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	// GenerativeModel carries per-request settings, so build one per call.
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(float32(opts.Temperature))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := strings.TrimSpace(geminiText(resp))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Close releases the underlying gRPC connection.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
