package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/sentinel"
)

type fakeModels struct {
	model  string
	config *genai.GenerateContentConfig
	text   string
	err    error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(f.text, genai.RoleModel),
		}},
	}, nil
}

func TestGeminiClient(t *testing.T) {
	t.Run("returns candidate text", func(t *testing.T) {
		models := &fakeModels{text: validPolicy}
		c := NewGeminiClientWithModels(models, "")

		got, err := c.Complete(context.Background(), "sys", "user")
		require.NoError(t, err)
		assert.Equal(t, validPolicy, got)
		assert.Equal(t, DefaultGeminiModel, models.model)
		require.NotNil(t, models.config.SystemInstruction)
	})

	t.Run("api failure is unavailable", func(t *testing.T) {
		c := NewGeminiClientWithModels(&fakeModels{err: errors.New("quota")}, "m")
		_, err := c.Complete(context.Background(), "sys", "user")
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("api failure keeps the context cause", func(t *testing.T) {
		c := NewGeminiClientWithModels(&fakeModels{err: context.Canceled}, "m")
		_, err := c.Complete(context.Background(), "sys", "user")
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty text", func(t *testing.T) {
		c := NewGeminiClientWithModels(&fakeModels{text: "  "}, "m")
		_, err := c.Complete(context.Background(), "sys", "user")
		assert.Error(t, err)
	})

	t.Run("requires api key", func(t *testing.T) {
		_, err := NewGeminiClient(context.Background(), "", "")
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})
}
