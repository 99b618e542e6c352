package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ThomasGates3/ai-powered-iam/pkg/requestcontext"
)

func TestMiddlewareWithClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return fixed
	}

	var seen []time.Time
	handler := MiddlewareWithClock(clock)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, requestcontext.Now(r.Context()), requestcontext.Now(r.Context()))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/policies", nil))

	assert.Equal(t, 1, calls, "clock is read once per request")
	assert.Equal(t, []time.Time{fixed, fixed}, seen)
}

func TestMiddlewareUsesWallClock(t *testing.T) {
	before := time.Now()
	var got time.Time
	Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.Now(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, got.Before(before))
	assert.False(t, got.After(time.Now()))
}
