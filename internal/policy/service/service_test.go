package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Generator,Store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/ThomasGates3/ai-powered-iam/internal/policy/metrics"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/models"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/oracle"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/service/mocks"
	dErrors "github.com/ThomasGates3/ai-powered-iam/pkg/domain-errors"
	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/sentinel"
	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
	"github.com/ThomasGates3/ai-powered-iam/pkg/requestcontext"
)

// =============================================================================
// Policy Service Test Suite
// =============================================================================
// Unit tests cover input validation ordering, error classification, record
// construction, and list ordering. Store backends have their own suites.

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	generator *mocks.MockGenerator
	store     *mocks.MockStore
	metrics   *metrics.Metrics
	service   *Service
	now       time.Time
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.generator = mocks.NewMockGenerator(s.ctrl)
	s.store = mocks.NewMockStore(s.ctrl)
	s.generator.EXPECT().Name().Return("fake").AnyTimes()
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	var err error
	s.service, err = New(s.generator, s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithIDGenerator(func() string { return "policy-1" }),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func readDocument() *policydoc.Document {
	return policydoc.New(policydoc.Statement{
		Effect:   policydoc.EffectAllow,
		Action:   policydoc.StringList{"s3:GetObject", "s3:ListBucket"},
		Resource: policydoc.StringList{"arn:aws:s3:::data-lake/*"},
	})
}

func recordAt(id string, created time.Time) *models.Record {
	return &models.Record{ID: id, CreatedAt: created, ExpiresAt: created.Add(models.DefaultRetention)}
}

// =============================================================================
// Constructor
// =============================================================================

func (s *ServiceSuite) TestNew() {
	s.Run("nil generator returns error", func() {
		_, err := New(nil, s.store)
		s.ErrorContains(err, "generator is required")
	})

	s.Run("nil store returns error", func() {
		_, err := New(s.generator, nil)
		s.ErrorContains(err, "policy store is required")
	})

	s.Run("options are applied", func() {
		svc, err := New(s.generator, s.store, WithRetention(time.Hour), WithRetention(0))
		s.Require().NoError(err)
		s.Equal(time.Hour, svc.retention)
		s.Equal("fake", svc.GeneratorName())
	})
}

// =============================================================================
// CreatePolicy
// =============================================================================

func (s *ServiceSuite) TestCreatePolicyValidation() {
	for _, input := range []string{"", "   ", "\n\t"} {
		s.Run(fmt.Sprintf("rejects %q before generating or storing", input), func() {
			rec, err := s.service.CreatePolicy(s.ctx, input)
			s.Nil(rec)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.Equal("Description is required", dErrors.MessageOf(err))
		})
	}
}

func (s *ServiceSuite) TestCreatePolicySuccess() {
	description := "  Lambda needs read-only access to S3 bucket data-lake "
	doc := readDocument()

	var stored *models.Record
	gomock.InOrder(
		s.generator.EXPECT().Generate(gomock.Any(), description).Return(doc, nil),
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, rec *models.Record) error {
				stored = rec
				return nil
			}),
	)

	rec, err := s.service.CreatePolicy(s.ctx, description)
	s.Require().NoError(err)
	s.Same(stored, rec)

	s.Equal("policy-1", rec.ID)
	s.Equal(description, rec.Description)
	s.Equal("2024-05-01T12:00:00.000Z", rec.Timestamp())
	s.Equal(s.now.Add(90*24*time.Hour), rec.ExpiresAt)

	got, err := rec.Document()
	s.Require().NoError(err)
	s.Equal(doc, got)

	s.Equal(1.0, promtest.ToFloat64(s.metrics.PoliciesCreated.WithLabelValues("fake")))
}

func (s *ServiceSuite) TestCreatePolicyGenerationFailure() {
	cases := []struct {
		name    string
		err     error
		reason  string
		message string
	}{
		{"oracle unavailable", fmt.Errorf("openrouter completion: %w: API error: 503", sentinel.ErrUnavailable), "unavailable", "policy generator is unavailable"},
		{"reply without json", oracle.ErrNoJSONObject, "no_document", "generator response did not contain a policy document"},
		{"reply with invalid policy", fmt.Errorf("%w: statement 0: missing action", oracle.ErrInvalidDocument), "invalid_document", "generator returned an invalid policy document"},
		{"deadline", context.DeadlineExceeded, "canceled", "policy generation timed out or was canceled"},
		{"oracle deadline behind unavailable", fmt.Errorf("openrouter completion: %w: request failed: %w", sentinel.ErrUnavailable, context.DeadlineExceeded), "canceled", "policy generation timed out or was canceled"},
		{"missing key", fmt.Errorf("key: %w", sentinel.ErrInvalidState), "misconfigured", "failed to generate policy"},
		{"unknown", errors.New("boom"), "other", "failed to generate policy"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.generator.EXPECT().Generate(gomock.Any(), "read s3").Return(nil, tc.err)

			rec, err := s.service.CreatePolicy(s.ctx, "read s3")
			s.Nil(rec)
			s.True(dErrors.HasCode(err, dErrors.CodeGeneration))
			s.ErrorIs(err, tc.err)
			s.Equal(tc.message, dErrors.MessageOf(err))
			s.Equal(1.0, promtest.ToFloat64(s.metrics.GenerationFailures.WithLabelValues("fake", tc.reason)))
		})
	}
}

func (s *ServiceSuite) TestCreatePolicyStoreFailure() {
	cause := errors.New("connection refused")
	s.generator.EXPECT().Generate(gomock.Any(), "read s3").Return(readDocument(), nil)
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(cause).Times(1)

	rec, err := s.service.CreatePolicy(s.ctx, "read s3")
	s.Nil(rec)
	s.True(dErrors.HasCode(err, dErrors.CodeStorage))
	s.ErrorIs(err, cause)
}

func (s *ServiceSuite) TestCreatePolicyDoesNotDeduplicate() {
	ids := []string{"a", "b"}
	svc, err := New(s.generator, s.store, WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))
	s.Require().NoError(err)

	s.generator.EXPECT().Generate(gomock.Any(), "same").Return(readDocument(), nil).Times(2)
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	first, err := svc.CreatePolicy(s.ctx, "same")
	s.Require().NoError(err)
	second, err := svc.CreatePolicy(s.ctx, "same")
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)
}

// =============================================================================
// ListPolicies
// =============================================================================

func (s *ServiceSuite) TestListPolicies() {
	s.Run("sorts newest first", func() {
		old := recordAt("old", s.now.Add(-2*time.Hour))
		mid := recordAt("mid", s.now.Add(-time.Hour))
		fresh := recordAt("fresh", s.now)
		s.store.EXPECT().List(gomock.Any()).Return([]*models.Record{mid, fresh, old}, nil)

		records, err := s.service.ListPolicies(s.ctx)
		s.Require().NoError(err)
		s.Equal([]*models.Record{fresh, mid, old}, records)
	})

	s.Run("returns records the store has not purged yet", func() {
		pending := recordAt("pending-ttl", s.now.Add(-91*24*time.Hour))
		fresh := recordAt("fresh", s.now)
		s.store.EXPECT().List(gomock.Any()).Return([]*models.Record{pending, fresh}, nil)

		records, err := s.service.ListPolicies(s.ctx)
		s.Require().NoError(err)
		s.Equal([]*models.Record{fresh, pending}, records)
	})

	s.Run("equal timestamps keep store order", func() {
		a := recordAt("a", s.now)
		b := recordAt("b", s.now)
		s.store.EXPECT().List(gomock.Any()).Return([]*models.Record{a, b}, nil)

		records, err := s.service.ListPolicies(s.ctx)
		s.Require().NoError(err)
		s.Equal([]string{"a", "b"}, []string{records[0].ID, records[1].ID})
	})

	s.Run("empty store yields empty non-nil slice", func() {
		s.store.EXPECT().List(gomock.Any()).Return(nil, nil)

		records, err := s.service.ListPolicies(s.ctx)
		s.Require().NoError(err)
		s.NotNil(records)
		s.Empty(records)
	})

	s.Run("store failure is a storage error", func() {
		s.store.EXPECT().List(gomock.Any()).Return(nil, errors.New("timeout"))

		_, err := s.service.ListPolicies(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeStorage))
	})
}

func (s *ServiceSuite) TestListPoliciesOrderForAnyStoreOrder() {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 25; round++ {
		records := make([]*models.Record, 12)
		for i := range records {
			offset := time.Duration(rng.IntN(6)) * time.Minute
			records[i] = recordAt(fmt.Sprintf("r%d", i), s.now.Add(-offset))
		}
		rng.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
		s.store.EXPECT().List(gomock.Any()).Return(records, nil)

		got, err := s.service.ListPolicies(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(got, len(records))
		for i := 1; i < len(got); i++ {
			s.False(got[i].CreatedAt.After(got[i-1].CreatedAt), "round %d index %d", round, i)
		}
	}
}

// =============================================================================
// DeletePolicy
// =============================================================================

func (s *ServiceSuite) TestDeletePolicy() {
	s.Run("blank id is a validation error", func() {
		err := s.service.DeletePolicy(s.ctx, "  ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown id succeeds", func() {
		s.store.EXPECT().Delete(gomock.Any(), "does-not-exist").Return(nil)
		s.NoError(s.service.DeletePolicy(s.ctx, "does-not-exist"))
	})

	s.Run("store failure is a storage error", func() {
		s.store.EXPECT().Delete(gomock.Any(), "p").Return(errors.New("throttled"))
		err := s.service.DeletePolicy(s.ctx, "p")
		s.True(dErrors.HasCode(err, dErrors.CodeStorage))
	})
}

// =============================================================================
// Optional store capabilities
// =============================================================================

type purgingStore struct {
	*mocks.MockStore
	*mocks.MockPurger
	*mocks.MockHealthChecker
}

func (s *ServiceSuite) TestOptionalCapabilities() {
	s.Run("plain store neither purges nor checks health", func() {
		n, err := s.service.PurgeExpired(s.ctx)
		s.NoError(err)
		s.Zero(n)
		s.False(s.service.SupportsPurge())
		s.NoError(s.service.Health(s.ctx))
		s.NoError(s.service.RunPurger(s.ctx, time.Millisecond))
	})

	s.Run("purging store is called with request time", func() {
		st := purgingStore{
			MockStore:         s.store,
			MockPurger:        mocks.NewMockPurger(s.ctrl),
			MockHealthChecker: mocks.NewMockHealthChecker(s.ctrl),
		}
		svc, err := New(s.generator, st)
		s.Require().NoError(err)

		st.MockPurger.EXPECT().PurgeExpired(gomock.Any(), s.now).Return(int64(3), nil)
		n, err := svc.PurgeExpired(s.ctx)
		s.Require().NoError(err)
		s.Equal(int64(3), n)

		st.MockHealthChecker.EXPECT().Health(gomock.Any()).Return(errors.New("down"))
		s.Error(svc.Health(s.ctx))
	})

	s.Run("purger loop stops on cancellation", func() {
		st := purgingStore{MockStore: s.store, MockPurger: mocks.NewMockPurger(s.ctrl)}
		svc, err := New(s.generator, st, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		s.Require().NoError(err)

		ctx, cancel := context.WithCancel(context.Background())
		st.MockPurger.EXPECT().PurgeExpired(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, time.Time) (int64, error) {
				cancel()
				return 0, errors.New("transient")
			}).MinTimes(1)

		s.NoError(svc.RunPurger(ctx, time.Millisecond))
	})
}
