package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ThomasGates3/ai-powered-iam/internal/platform/metrics"
	"github.com/ThomasGates3/ai-powered-iam/internal/platform/middleware"
	dErrors "github.com/ThomasGates3/ai-powered-iam/pkg/domain-errors"
	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/httputil"
	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/middleware/metadata"
	"github.com/ThomasGates3/ai-powered-iam/pkg/platform/middleware/requesttime"
)

// DefaultRequestTimeout bounds a whole request, oracle round trip included.
const DefaultRequestTimeout = 60 * time.Second

// RouteRegistrar is implemented by module handlers.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// RouterConfig carries the cross-cutting collaborators of the public router.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	// Tracing wraps the router with otelhttp spans.
	Tracing bool
}

// NewRouter wires the middleware chain and every module's routes. The
// handler stays thin: business logic lives in the module services.
func NewRouter(cfg RouterConfig, modules ...RouteRegistrar) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.LatencyMiddleware(cfg.Metrics))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Error:   "method_not_allowed",
			Message: "method not allowed",
		})
	})

	for _, m := range modules {
		m.Register(r)
	}

	if cfg.Tracing {
		return otelhttp.NewHandler(r, "policy-api")
	}
	return r
}

// HealthFunc reports whether a dependency is usable.
type HealthFunc func(ctx context.Context) error

// NewOpsRouter serves /healthz and /metrics on the operational listener.
func NewOpsRouter(gatherer prometheus.Gatherer, health HealthFunc) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"error":  err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
