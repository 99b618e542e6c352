package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ThomasGates3/ai-powered-iam/internal/platform/middleware"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/models"
	dErrors "github.com/ThomasGates3/ai-powered-iam/pkg/domain-errors"
	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/httputil"
)

// Service defines the interface for policy operations.
type Service interface {
	CreatePolicy(ctx context.Context, description string) (*models.Record, error)
	ListPolicies(ctx context.Context) ([]*models.Record, error)
	DeletePolicy(ctx context.Context, id string) error
}

// Handler handles the /policies endpoints.
type Handler struct {
	logger   *slog.Logger
	policies Service
}

// New creates a new policy Handler.
func New(policies Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, policies: policies}
}

// Register registers the policy routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/policies", h.handleCreatePolicy)
	r.Get("/policies", h.handleListPolicies)
	r.Delete("/policies", h.handleDeleteWithoutID)
	r.Delete("/policies/", h.handleDeleteWithoutID)
	r.Delete("/policies/{id}", h.handleDeletePolicy)
}

// handleCreatePolicy generates and stores a policy for the submitted description.
func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req CreatePolicyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid create policy request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.policies.CreatePolicy(ctx, req.Description)
	if err != nil {
		h.logFailure(ctx, "create policy failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toPolicyResponse(rec))
}

// handleListPolicies returns every stored policy, newest first.
func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.policies.ListPolicies(ctx)
	if err != nil {
		h.logFailure(ctx, "list policies failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toListResponse(records))
}

func (h *Handler) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.policies.DeletePolicy(ctx, id); err != nil {
		h.logFailure(ctx, "delete policy failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Policy deleted"})
}

func (h *Handler) handleDeleteWithoutID(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "Policy ID is required"))
}

// logFailure logs client errors at Warn and server errors at Error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	status := httputil.StatusFor(dErrors.CodeOf(err))
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"code", string(dErrors.CodeOf(err)),
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
