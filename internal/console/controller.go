package console

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ThomasGates3/ai-powered-iam/pkg/client"
)

var (
	// ErrEmptyInput is returned when Generate is called with a blank description.
	ErrEmptyInput = errors.New("Please provide a description") //nolint:staticcheck // shown to users verbatim
	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("request already in progress")
)

// API is the subset of the policy SDK the controller needs.
type API interface {
	GeneratePolicy(ctx context.Context, description string) (*client.Policy, error)
	ListPolicies(ctx context.Context) ([]client.Policy, error)
	DeletePolicy(ctx context.Context, id string) error
}

// Controller sequences API calls against a Store. Generate, Refresh and
// Delete are each single-flight and may run concurrently with one another.
type Controller struct {
	api    API
	store  *Store
	logger *slog.Logger
}

func NewController(api API, store *Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{api: api, store: store, logger: logger}
}

func (c *Controller) Store() *Store { return c.store }

// SetInput records the description being edited.
func (c *Controller) SetInput(text string) {
	c.store.Dispatch(InputChanged{Text: text})
}

// Generate submits the current input. The result lands in State.Current.
func (c *Controller) Generate(ctx context.Context) error {
	input := c.store.State().Input
	if strings.TrimSpace(input) == "" {
		c.store.Dispatch(GenerateRejected{Reason: ErrEmptyInput.Error()})
		return ErrEmptyInput
	}
	if prev, _ := c.store.Dispatch(GenerateStarted{}); prev.Generating {
		return ErrBusy
	}

	policy, err := c.api.GeneratePolicy(ctx, input)
	if err != nil {
		c.logger.WarnContext(ctx, "policy generation failed", "error", err)
		c.store.Dispatch(GenerateFailed{Message: errorMessage(err)})
		return err
	}
	doc, err := policy.Document()
	if err != nil {
		c.logger.WarnContext(ctx, "generated policy is not a valid document",
			"policy_id", policy.ID, "error", err)
		c.store.Dispatch(GenerateFailed{Message: errorMessage(err)})
		return err
	}
	c.store.Dispatch(GenerateSucceeded{Policy: *policy, Document: doc})
	return nil
}

// Refresh reloads the policy history.
func (c *Controller) Refresh(ctx context.Context) error {
	if prev, _ := c.store.Dispatch(ListStarted{}); prev.Listing {
		return ErrBusy
	}
	policies, err := c.api.ListPolicies(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "listing policies failed", "error", err)
		c.store.Dispatch(ListFailed{Message: errorMessage(err)})
		return err
	}
	c.store.Dispatch(ListSucceeded{Policies: policies})
	return nil
}

// Delete removes one policy. Deletes of different ids may overlap.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if prev, _ := c.store.Dispatch(DeleteStarted{ID: id}); prev.Deleting[id] {
		return ErrBusy
	}
	if err := c.api.DeletePolicy(ctx, id); err != nil {
		c.logger.WarnContext(ctx, "deleting policy failed", "policy_id", id, "error", err)
		c.store.Dispatch(DeleteFailed{ID: id, Message: errorMessage(err)})
		return err
	}
	c.store.Dispatch(DeleteSucceeded{ID: id})
	return nil
}

func errorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
