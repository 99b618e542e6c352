package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/ThomasGates3/ai-powered-iam/internal/platform/config"
	"github.com/ThomasGates3/ai-powered-iam/internal/platform/httpserver"
	"github.com/ThomasGates3/ai-powered-iam/internal/platform/logger"
	platformmetrics "github.com/ThomasGates3/ai-powered-iam/internal/platform/metrics"
	"github.com/ThomasGates3/ai-powered-iam/internal/platform/telemetry"
	policyhandler "github.com/ThomasGates3/ai-powered-iam/internal/policy/handler"
	policymetrics "github.com/ThomasGates3/ai-powered-iam/internal/policy/metrics"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/service"
	httptransport "github.com/ThomasGates3/ai-powered-iam/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies and owns the process lifecycle. Business logic
// lives in internal/policy.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	deps, err := buildBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	svc, err := service.New(deps.generator, deps.store,
		service.WithLogger(log),
		service.WithMetrics(policymetrics.New()),
		service.WithRetention(cfg.Store.Retention),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        platformmetrics.New(),
		RequestTimeout: cfg.RequestTimeout,
		Tracing:        cfg.Telemetry.OTLPEndpoint != "",
	}, policyhandler.New(svc, log))

	log.Info("starting policy API",
		"addr", cfg.Addr,
		"generator", svc.GeneratorName(),
		"store", cfg.Store.Backend,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(ctx, httpserver.New(cfg.Addr, router), log, shutdownTimeout)
	})
	if cfg.MetricsAddr != "" {
		ops := httptransport.NewOpsRouter(prometheus.DefaultGatherer, svc.Health)
		g.Go(func() error {
			return httpserver.Run(ctx, httpserver.New(cfg.MetricsAddr, ops), log, shutdownTimeout)
		})
	}
	if svc.SupportsPurge() {
		g.Go(func() error {
			return svc.RunPurger(ctx, cfg.Store.PurgeInterval)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
