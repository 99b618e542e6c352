// Package client is the Go SDK for the policy API. Each call maps to one
// endpoint and is attempted exactly once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
)

// DefaultTimeout bounds every call; policy generation waits on a model.
const DefaultTimeout = 30 * time.Second

const userAgent = "ai-powered-iam-go-sdk/1.0"

// Policy is a stored policy as returned by the API.
type Policy struct {
	ID          string `json:"policy_id"`
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	PolicyJSON  string `json:"policy_json"`
}

// Document decodes and validates PolicyJSON.
func (p Policy) Document() (*policydoc.Document, error) {
	return policydoc.Parse(p.PolicyJSON)
}

// CreatedAt parses Timestamp.
func (p Policy) CreatedAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, p.Timestamp)
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("policy api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("policy api: %d: %s", e.StatusCode, e.Message)
}

// Client calls the policy API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client (and its timeout).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-call timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GeneratePolicy asks the API to generate and store a policy.
func (c *Client) GeneratePolicy(ctx context.Context, description string) (*Policy, error) {
	var out Policy
	body := map[string]string{"description": description}
	if err := c.do(ctx, http.MethodPost, "/policies", body, &out, "failed to generate policy"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPolicies returns every stored policy, newest first.
func (c *Client) ListPolicies(ctx context.Context) ([]Policy, error) {
	var out struct {
		Policies []Policy `json:"policies"`
	}
	if err := c.do(ctx, http.MethodGet, "/policies", nil, &out, "failed to list policies"); err != nil {
		return nil, err
	}
	if out.Policies == nil {
		out.Policies = []Policy{}
	}
	return out.Policies, nil
}

// DeletePolicy removes a policy. Unknown ids succeed.
func (c *Client) DeletePolicy(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/policies/"+url.PathEscape(id), nil, nil, "failed to delete policy")
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, fallback string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", fallback, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", fallback, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody, fallback)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", fallback, err)
	}
	return nil
}

// parseAPIError prefers the body's message, then its error, then fallback.
func parseAPIError(status int, body []byte, fallback string) error {
	apiErr := &APIError{StatusCode: status, Message: fallback}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Code = payload.Error
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
	}
	return apiErr
}
