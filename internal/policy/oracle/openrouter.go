package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/sentinel"
)

// ProviderOpenRouter labels the OpenRouter backend.
const ProviderOpenRouter = "openrouter"

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	SiteName  string
}

// DefaultOpenRouterConfig returns the defaults used by the server.
func DefaultOpenRouterConfig(apiKey string) OpenRouterConfig {
	return OpenRouterConfig{
		APIKey:    apiKey,
		BaseURL:   "https://openrouter.ai/api/v1",
		Model:     "anthropic/claude-3.5-haiku",
		MaxTokens: 1024,
		Timeout:   30 * time.Second,
		SiteName:  "ai-powered-iam",
	}
}

// OpenRouterClient calls the OpenAI-compatible chat completions endpoint of OpenRouter.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	siteName   string
	httpClient *http.Client
}

// NewOpenRouterClient builds a client; zero fields fall back to the defaults.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	def := DefaultOpenRouterConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.SiteName == "" {
		cfg.SiteName = def.SiteName
	}
	return &OpenRouterClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		siteName:   cfg.SiteName,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion request.
func (c *OpenRouterClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openrouter API key not configured: %w", sentinel.ErrInvalidState)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", c.siteName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", sentinel.ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: API error: %d - %s", sentinel.ErrUnavailable, resp.StatusCode, truncate(string(body), 512))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: API error: %s", sentinel.ErrUnavailable, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
