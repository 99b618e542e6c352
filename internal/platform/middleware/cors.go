package middleware

import (
	"net/http"

	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/httputil"
)

// CORS headers sent on every response.
const (
	AllowOrigin  = "*"
	AllowMethods = "GET, POST, DELETE, OPTIONS"
	AllowHeaders = "Content-Type"
)

// CORS sets the cross-origin headers on every response and answers any
// OPTIONS request with 200 {} before routing.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", AllowOrigin)
		h.Set("Access-Control-Allow-Methods", AllowMethods)
		h.Set("Access-Control-Allow-Headers", AllowHeaders)
		if r.Method == http.MethodOptions {
			httputil.WriteJSON(w, http.StatusOK, struct{}{})
			return
		}
		next.ServeHTTP(w, r)
	})
}
