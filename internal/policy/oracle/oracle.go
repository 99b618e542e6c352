// Package oracle generates policy documents by asking a hosted language model.
//
// A Completer is one provider's text-completion call. Generator wraps any
// Completer with the fixed prompt and the JSON extraction step, so every
// provider yields validated documents or an error. No call is retried.
package oracle

import (
	"context"
	"fmt"

	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
)

// Completer sends a system and user message to a model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Generator turns descriptions into documents through a Completer.
type Generator struct {
	name      string
	completer Completer
}

// NewGenerator wraps completer; name labels logs and metrics.
func NewGenerator(name string, completer Completer) *Generator {
	return &Generator{name: name, completer: completer}
}

// Name returns the backend label.
func (g *Generator) Name() string {
	return g.name
}

// Generate asks the model for a policy and extracts the document from its reply.
func (g *Generator) Generate(ctx context.Context, description string) (*policydoc.Document, error) {
	reply, err := g.completer.Complete(ctx, SystemPrompt, UserPrompt(description))
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", g.name, err)
	}
	return ExtractJSON(reply)
}
