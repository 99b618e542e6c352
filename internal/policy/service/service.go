package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ThomasGates3/ai-powered-iam/internal/policy/metrics"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/models"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/oracle"
	dErrors "github.com/ThomasGates3/ai-powered-iam/pkg/domain-errors"
	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/sentinel"
	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
	"github.com/ThomasGates3/ai-powered-iam/pkg/requestcontext"
)

const tracerName = "github.com/ThomasGates3/ai-powered-iam/internal/policy/service"

// Generator turns a free-text description into a policy document.
// Implemented by the keyword synthesizer and the oracle-backed generator.
type Generator interface {
	Generate(ctx context.Context, description string) (*policydoc.Document, error)
	Name() string
}

// Store persists policy records.
type Store interface {
	Create(ctx context.Context, rec *models.Record) error
	List(ctx context.Context) ([]*models.Record, error)
	Delete(ctx context.Context, id string) error
}

// Purger is implemented by stores without native expiry.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// HealthChecker is implemented by stores backed by a remote server.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Service orchestrates policy generation and persistence.
type Service struct {
	generator Generator
	store     Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	retention time.Duration
	newID     func() string
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithRetention sets how long records stay listable. Non-positive values keep the default.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithIDGenerator replaces uuid.NewString, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// New constructs a Service.
func New(generator Generator, store Store, opts ...Option) (*Service, error) {
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if store == nil {
		return nil, errors.New("policy store is required")
	}
	s := &Service{
		generator: generator,
		store:     store,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		retention: models.DefaultRetention,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GeneratorName reports which backend generates policies.
func (s *Service) GeneratorName() string {
	return s.generator.Name()
}

// CreatePolicy generates a policy for description and persists it.
// Blank descriptions are rejected before the generator or store is touched.
// Neither step is retried; identical descriptions produce distinct records.
func (s *Service) CreatePolicy(ctx context.Context, description string) (*models.Record, error) {
	if strings.TrimSpace(description) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Description is required")
	}

	ctx, span := s.tracer.Start(ctx, "policy.create",
		trace.WithAttributes(attribute.String("policy.generator", s.generator.Name())))
	defer span.End()

	start := time.Now()
	doc, err := s.generator.Generate(ctx, description)
	s.observeGeneration(start)
	if err != nil {
		reason := failureReason(err)
		s.incrementGenerationFailure(reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		s.logger.ErrorContext(ctx, "policy generation failed",
			"request_id", requestcontext.RequestID(ctx),
			"generator", s.generator.Name(),
			"reason", reason,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeGeneration, failureMessage(reason))
	}

	rec, err := models.NewRecord(s.newID(), description, doc, requestcontext.Now(ctx), s.retention)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record construction failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("policy.id", rec.ID),
		attribute.Int("policy.statements", len(doc.Statement)),
	)

	start = time.Now()
	err = s.store.Create(ctx, rec)
	s.observeStore("create", start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		s.logger.ErrorContext(ctx, "failed to store policy",
			"request_id", requestcontext.RequestID(ctx),
			"policy_id", rec.ID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to store policy")
	}

	s.incrementCreated()
	s.logger.InfoContext(ctx, "policy created",
		"request_id", requestcontext.RequestID(ctx),
		"policy_id", rec.ID,
		"generator", s.generator.Name(),
		"statements", len(doc.Statement),
	)
	return rec, nil
}

// ListPolicies returns the store's records newest first. Expiry belongs to
// the store. Records with equal timestamps keep the store's relative order.
func (s *Service) ListPolicies(ctx context.Context) ([]*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "policy.list")
	defer span.End()

	start := time.Now()
	records, err := s.store.List(ctx)
	s.observeStore("list", start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		s.logger.ErrorContext(ctx, "failed to list policies",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list policies")
	}

	out := make([]*models.Record, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, rec)
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	span.SetAttributes(attribute.Int("policy.count", len(out)))
	return out, nil
}

// DeletePolicy removes a record. Deleting an unknown id succeeds.
func (s *Service) DeletePolicy(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return dErrors.New(dErrors.CodeValidation, "Policy ID is required")
	}

	ctx, span := s.tracer.Start(ctx, "policy.delete",
		trace.WithAttributes(attribute.String("policy.id", id)))
	defer span.End()

	start := time.Now()
	err := s.store.Delete(ctx, id)
	s.observeStore("delete", start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		s.logger.ErrorContext(ctx, "failed to delete policy",
			"request_id", requestcontext.RequestID(ctx),
			"policy_id", id,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete policy")
	}

	s.incrementDeleted()
	s.logger.InfoContext(ctx, "policy deleted",
		"request_id", requestcontext.RequestID(ctx),
		"policy_id", id,
	)
	return nil
}

// Health checks the store when it supports it.
func (s *Service) Health(ctx context.Context) error {
	if hc, ok := s.store.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, sentinel.ErrInvalidState):
		return "misconfigured"
	case errors.Is(err, sentinel.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, oracle.ErrNoJSONObject):
		return "no_document"
	case errors.Is(err, oracle.ErrInvalidDocument), errors.Is(err, policydoc.ErrInvalid):
		return "invalid_document"
	default:
		return "other"
	}
}

func failureMessage(reason string) string {
	switch reason {
	case "canceled":
		return "policy generation timed out or was canceled"
	case "unavailable":
		return "policy generator is unavailable"
	case "no_document":
		return "generator response did not contain a policy document"
	case "invalid_document":
		return "generator returned an invalid policy document"
	default:
		return "failed to generate policy"
	}
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.IncrementCreated(s.generator.Name())
	}
}

func (s *Service) incrementDeleted() {
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
}

func (s *Service) incrementGenerationFailure(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementGenerationFailure(s.generator.Name(), reason)
	}
}

func (s *Service) observeGeneration(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveGeneration(s.generator.Name(), start)
	}
}

func (s *Service) observeStore(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStore(op, start)
	}
}
