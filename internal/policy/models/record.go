package models

import (
	"strings"
	"time"

	dErrors "github.com/ThomasGates3/ai-powered-iam/pkg/domain-errors"
	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
)

// TimestampLayout is ISO-8601 with millisecond precision. Records are always
// UTC so the zone renders as "Z".
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DefaultRetention is how long a record stays listable (90 days).
const DefaultRetention = 90 * 24 * time.Hour

// Record is one generated policy as persisted by the record store.
//
// Invariants:
//   - ID is a UUID assigned at creation
//   - CreatedAt is UTC with millisecond precision
//   - PolicyJSON is the compact encoding of a valid policy document
//   - ExpiresAt is CreatedAt plus the retention period
//   - All fields are immutable after construction
type Record struct {
	ID          string
	CreatedAt   time.Time
	Description string
	PolicyJSON  string
	ExpiresAt   time.Time
}

// NewRecord encodes doc and stamps the record. now is normalized to UTC
// milliseconds so the timestamp string round-trips exactly.
func NewRecord(id, description string, doc *policydoc.Document, now time.Time, retention time.Duration) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "record id is required")
	}
	if doc == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "policy document is required")
	}
	encoded, err := doc.Encode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode policy document")
	}
	created := now.UTC().Truncate(time.Millisecond)
	return &Record{
		ID:          id,
		CreatedAt:   created,
		Description: description,
		PolicyJSON:  encoded,
		ExpiresAt:   created.Add(retention),
	}, nil
}

// Timestamp renders CreatedAt in TimestampLayout.
func (r *Record) Timestamp() string {
	return FormatTimestamp(r.CreatedAt)
}

// TTL is the expiry as epoch seconds, the unit native expiry attributes use.
func (r *Record) TTL() int64 {
	return r.ExpiresAt.Unix()
}

// Expired reports whether the record is past its retention at now.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Document decodes PolicyJSON.
func (r *Record) Document() (*policydoc.Document, error) {
	return policydoc.Parse(r.PolicyJSON)
}

// FormatTimestamp renders t in TimestampLayout after converting to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
