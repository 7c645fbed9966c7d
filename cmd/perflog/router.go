package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/perflog/perflog/internal/config"
	"github.com/perflog/perflog/internal/handler"
	"github.com/perflog/perflog/internal/middleware"
	"github.com/perflog/perflog/internal/perf"
)

// routerDeps collects what setupRouter wires. Optional dependencies stay nil
// when their feature is disabled.
type routerDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	tracker  *perf.Tracker
	gatherer prometheus.Gatherer

	perf      middleware.PerfEmitter // nil when STAT_LOG is off
	submitter handler.BatchSubmitter
	reader    handler.TxStatusReader
	db        handler.HealthChecker
	redis     handler.HealthChecker
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = d.cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger, d.cfg.IsDevelopment()))
	r.Use(middleware.Security(d.cfg.IsProduction()))
	r.Use(middleware.CORS(cors))
	r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))

	h := handler.New()
	healthHandler := handler.NewHealthHandler(d.db, d.redis)
	perfHandler := handler.NewPerfHandler(d.tracker, d.logger)
	txHandler := handler.NewTxStatusHandler(d.submitter, d.reader, d.logger)

	// Probes and scraping stay out of the perf statistics.
	r.Get("/", h.Index)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Method(http.MethodGet, "/metrics", handler.NewMetricsHandler(d.gatherer))

	r.Get("/debug/perf", perfHandler.Snapshot)
	r.With(middleware.AdminAuth(middleware.AdminAuthConfig{
		TokenHash:   d.cfg.AdminTokenHash,
		Logger:      d.logger,
		MinDuration: d.cfg.AdminAuthMinDuration,
	})).Post("/debug/perf/report", perfHandler.Report)

	r.Route("/api/v1/tx-status", func(r chi.Router) {
		r.With(middleware.APIPerf(d.perf, "tx_status.ingest")).Post("/", txHandler.Ingest)
		r.With(middleware.APIPerf(d.perf, "tx_status.list")).Get("/", txHandler.List)
		r.With(middleware.APIPerf(d.perf, "tx_status.get")).Get("/{hash}", txHandler.Get)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
