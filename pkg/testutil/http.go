// Package testutil holds helpers shared by the policy API handler, router and
// store tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/httputil"
)

// NewJSONRequest builds a request whose body is v encoded as JSON. A nil v
// sends no body.
func NewJSONRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()

	var body io.Reader
	if v != nil {
		raw, err := json.Marshal(v)
		require.NoError(t, err, "encode request body")
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequest builds a bodyless request.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// NewRawRequest sends body verbatim, for malformed or hand-written payloads.
func NewRawRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse decodes the recorded body into a T. The recorder body is
// not consumed, so it can be decoded again.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "decode response body: %s", rr.Body.String())
	return &out
}

func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equal(t, want, rr.Code, "unexpected status, body: %s", rr.Body.String())
}

func AssertStatusOK(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	AssertStatus(t, rr, http.StatusOK)
}

// AssertAPIError checks status and the "error" code of the error body and
// returns the decoded body so callers can inspect the message.
func AssertAPIError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) *httputil.ErrorResponse {
	t.Helper()
	AssertStatus(t, rr, status)
	body := UnmarshalResponse[httputil.ErrorResponse](t, rr)
	assert.Equal(t, code, body.Error, "unexpected error code")
	return body
}

// AssertJSONContains checks a single top-level field of a JSON object body.
func AssertJSONContains(t *testing.T, rr *httptest.ResponseRecorder, key string, want any) {
	t.Helper()
	body := UnmarshalResponse[map[string]any](t, rr)
	assert.Equal(t, want, (*body)[key], "unexpected value for key %q", key)
}
