package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ThomasGates3/ai-powered-iam/internal/policy/models"
)

const (
	// Redis key prefix for policy record hashes
	policyKeyPrefix = "policy:"
	scanBatchSize   = 100
)

// RedisStore keeps one hash per record under policy:{id}. Expiry is delegated
// to Redis via EXPIREAT so expired records disappear without a purger.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed record store. The client lifecycle is
// managed by the caller.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func policyKey(id string) string {
	return policyKeyPrefix + id
}

// Create writes the hash and its expiry in one MULTI/EXEC transaction,
// watching the key so a concurrent writer of the same id aborts the commit.
func (s *RedisStore) Create(ctx context.Context, rec *models.Record) error {
	key := policyKey(rec.ID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateID
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				attrPolicyID, rec.ID,
				attrTimestamp, rec.Timestamp(),
				attrDesc, rec.Description,
				attrPolicyJSON, rec.PolicyJSON,
				attrTTL, rec.TTL(),
			)
			if !rec.ExpiresAt.IsZero() {
				pipe.ExpireAt(ctx, key, rec.ExpiresAt)
			}
			return nil
		})
		return err
	}, key)
	if errors.Is(err, ErrDuplicateID) {
		return err
	}
	if err != nil {
		return fmt.Errorf("create policy %s: %w", rec.ID, err)
	}
	return nil
}

// List scans the policy keyspace and loads every hash with one pipeline.
// Keys that expire between the scan and the read are skipped.
func (s *RedisStore) List(ctx context.Context) ([]*models.Record, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, policyKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan policies: %w", err)
	}
	if len(keys) == 0 {
		return []*models.Record{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}

	out := make([]*models.Record, 0, len(keys))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec, err := recordFromHash(fields)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete is idempotent; DEL of a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, policyKey(id)).Err(); err != nil {
		return fmt.Errorf("delete policy %s: %w", id, err)
	}
	return nil
}

// Health pings the server.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func recordFromHash(fields map[string]string) (*models.Record, error) {
	created, err := models.ParseTimestamp(fields[attrTimestamp])
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	rec := &models.Record{
		ID:          fields[attrPolicyID],
		CreatedAt:   created,
		Description: fields[attrDesc],
		PolicyJSON:  fields[attrPolicyJSON],
	}
	if raw := fields[attrTTL]; raw != "" {
		ttl, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse ttl: %w", err)
		}
		rec.ExpiresAt = time.Unix(ttl, 0).UTC()
	}
	return rec, nil
}
