package testutil

import (
	"net/http"

	"github.com/ThomasGates3/ai-powered-iam/pkg/requestcontext"
)

// WithRequestID adds a request ID to the request context.
// This simulates what the request id middleware does.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
