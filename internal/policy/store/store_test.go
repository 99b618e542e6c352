package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/ThomasGates3/ai-powered-iam/internal/policy/models"
	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
)

// recordStore is the behavior every backend shares.
type recordStore interface {
	Create(ctx context.Context, rec *models.Record) error
	List(ctx context.Context) ([]*models.Record, error)
	Delete(ctx context.Context, id string) error
}

// storeContractSuite runs the same cases against any backend. Backend suites
// embed it and assign store in SetupTest.
type storeContractSuite struct {
	suite.Suite
	ctx   context.Context
	store recordStore
}

func newTestRecord(description string, created time.Time) *models.Record {
	doc := policydoc.New(policydoc.Statement{
		Sid:      "ReadLake",
		Effect:   policydoc.EffectAllow,
		Action:   policydoc.StringList{"s3:GetObject", "s3:ListBucket"},
		Resource: policydoc.StringList{"arn:aws:s3:::data-lake/*"},
		Condition: policydoc.Condition{
			"Bool": {"aws:SecureTransport": policydoc.StringList{"true"}},
		},
	})
	rec, err := models.NewRecord(uuid.NewString(), description, doc, created, models.DefaultRetention)
	if err != nil {
		panic(err)
	}
	return rec
}

func (s *storeContractSuite) findByID(id string) *models.Record {
	records, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	for _, rec := range records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func (s *storeContractSuite) TestCreateAndList() {
	s.Run("empty store lists nothing", func() {
		records, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("round-trips every field", func() {
		rec := newTestRecord("Lambda needs read-only access to S3 bucket data-lake", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, rec))

		found := s.findByID(rec.ID)
		s.Require().NotNil(found)
		s.Equal(rec.ID, found.ID)
		s.True(rec.CreatedAt.Equal(found.CreatedAt))
		s.Equal(rec.Timestamp(), found.Timestamp())
		s.Equal(rec.Description, found.Description)
		s.Equal(rec.TTL(), found.TTL())

		want, err := rec.Document()
		s.Require().NoError(err)
		got, err := found.Document()
		s.Require().NoError(err)
		s.Equal(want, got)
	})

	s.Run("identical descriptions create distinct records", func() {
		before, err := s.store.List(s.ctx)
		s.Require().NoError(err)

		s.Require().NoError(s.store.Create(s.ctx, newTestRecord("same", time.Now())))
		s.Require().NoError(s.store.Create(s.ctx, newTestRecord("same", time.Now())))

		after, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Len(after, len(before)+2)
	})

	s.Run("rejects duplicate id", func() {
		rec := newTestRecord("dup", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, rec))
		s.ErrorIs(s.store.Create(s.ctx, rec), ErrDuplicateID)
	})
}

func (s *storeContractSuite) TestDelete() {
	s.Run("removes the record", func() {
		rec := newTestRecord("to delete", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, rec))
		s.Require().NoError(s.store.Delete(s.ctx, rec.ID))
		s.Nil(s.findByID(rec.ID))
	})

	s.Run("unknown id is not an error", func() {
		s.NoError(s.store.Delete(s.ctx, uuid.NewString()))
	})

	s.Run("repeated delete is not an error", func() {
		rec := newTestRecord("twice", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, rec))
		s.Require().NoError(s.store.Delete(s.ctx, rec.ID))
		s.NoError(s.store.Delete(s.ctx, rec.ID))
	})
}
