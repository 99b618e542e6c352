// Package store persists policy records. Every backend offers the same three
// operations (create, list-all, delete-by-id); records are never updated.
//
// Backends:
//   - InMemoryStore: process-local, for development and tests
//   - RedisStore: one hash per record with native key expiry
//   - PostgresStore: one row per record, expired rows purged periodically
//   - DynamoStore: the original deployment's table layout with a TTL attribute
package store

import "errors"

// ErrDuplicateID is returned when a record with the same ID already exists.
var ErrDuplicateID = errors.New("policy id already exists")

// Item attribute names shared by the key-value backends.
const (
	attrPolicyID   = "policy_id"
	attrTimestamp  = "timestamp"
	attrDesc       = "description"
	attrPolicyJSON = "policy_json"
	attrTTL        = "ttl"
)
