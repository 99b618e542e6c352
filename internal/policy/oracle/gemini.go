package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/sentinel"
)

const (
	// ProviderGemini labels the Google Gemini backend.
	ProviderGemini = "gemini"
	// DefaultGeminiModel is used when no model is configured.
	DefaultGeminiModel = "gemini-2.0-flash"
)

// GeminiModels is the subset of *genai.Models the oracle uses.
type GeminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient calls Google's Gemini API through the genai SDK.
type GeminiClient struct {
	models GeminiModels
	model  string
}

// NewGeminiClient creates a genai client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required: %w", sentinel.ErrInvalidState)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return NewGeminiClientWithModels(client.Models, model), nil
}

// NewGeminiClientWithModels wraps an existing models service.
func NewGeminiClientWithModels(models GeminiModels, model string) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{models: models, model: model}
}

// Complete sends the user message with the system prompt as system instruction.
func (c *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   2048,
	}
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(user), config)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %w", sentinel.ErrUnavailable, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("no completion returned")
	}
	return text, nil
}
