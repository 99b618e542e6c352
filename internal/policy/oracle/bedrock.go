package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/sentinel"
)

const (
	// ProviderBedrock labels the AWS Bedrock backend.
	ProviderBedrock = "bedrock"
	// DefaultBedrockModel is the Anthropic model invoked when none is configured.
	DefaultBedrockModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"

	bedrockAnthropicVersion = "bedrock-2023-06-01"
	bedrockMaxTokens        = 2048
)

// BedrockInvoker is the subset of *bedrockruntime.Client the oracle uses.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient invokes an Anthropic model hosted on AWS Bedrock.
type BedrockClient struct {
	api     BedrockInvoker
	modelID string
}

// NewBedrockClient wraps a Bedrock runtime client.
func NewBedrockClient(api BedrockInvoker, modelID string) *BedrockClient {
	if modelID == "" {
		modelID = DefaultBedrockModel
	}
	return &BedrockClient{api: api, modelID: modelID}
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete invokes the model once and joins the text blocks of its reply.
func (c *BedrockClient) Complete(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(bedrockRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        bedrockMaxTokens,
		System:           system,
		Messages:         []bedrockMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("%w: invoke model: %w", sentinel.ErrUnavailable, err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no completion returned")
	}
	return strings.TrimSpace(b.String()), nil
}
