package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ThomasGates3/ai-powered-iam/internal/policy/models"
	"github.com/ThomasGates3/ai-powered-iam/pkg/requestcontext"
)

const uniqueViolation = "23505"

// Schema creates the policies table. EnsureSchema applies it; deployments with
// a migration tool can run it themselves.
const Schema = `
CREATE TABLE IF NOT EXISTS policies (
	policy_id   TEXT PRIMARY KEY,
	created_at  TIMESTAMPTZ NOT NULL,
	description TEXT NOT NULL,
	policy_json TEXT NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS policies_expires_at_idx ON policies (expires_at);
`

// PostgresStore persists records in PostgreSQL. Expired rows stay invisible to
// List and are removed by PurgeExpired.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the table and index if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO policies (policy_id, created_at, description, policy_json, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.CreatedAt, rec.Description, rec.PolicyJSON, rec.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateID
		}
		return fmt.Errorf("create policy %s: %w", rec.ID, err)
	}
	return nil
}

// List returns unexpired records, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT policy_id, created_at, description, policy_json, expires_at
		FROM policies
		WHERE expires_at > $1
		ORDER BY created_at DESC`,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	out := []*models.Record{}
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Description, &rec.PolicyJSON, &rec.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.ExpiresAt = rec.ExpiresAt.UTC()
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	return out, nil
}

// Delete is idempotent; deleting a missing id affects zero rows.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM policies WHERE policy_id = $1`, id); err != nil {
		return fmt.Errorf("delete policy %s: %w", id, err)
	}
	return nil
}

// PurgeExpired deletes rows whose retention ended at or before now.
func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM policies WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired policies: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Health pings the pool.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
