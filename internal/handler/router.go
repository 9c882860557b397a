package handler

import (
	"net/http"

	"github.com/hmoreno/cierre-fiscal/internal/infra/observability"
	"github.com/hmoreno/cierre-fiscal/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options carries the profile-token settings for the router.
type Options struct {
	JWTSecret    string
	DevProfile   bool
	DevProfileID string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(closeSvc *service.CloseService, migration *service.MigrationEngine, metrics *observability.Metrics, logger *zap.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(ProfileMiddleware(opts.JWTSecret, opts.DevProfile, opts.DevProfileID, logger))

		// Records
		r.Post("/records", createRecordHandler(closeSvc, logger))
		r.Get("/records", listRecordsHandler(closeSvc, logger))
		r.Delete("/records/{recordID}", deleteRecordHandler(closeSvc, logger))

		// Monthly derivations
		r.Get("/months/{month}/snapshot", snapshotHandler(closeSvc, logger))
		r.Get("/months/{month}/tax-estimate", taxEstimateHandler(closeSvc, logger))
		r.Get("/months/{month}/journey", journeyHandler(closeSvc, logger))
		r.Post("/months/{month}/journey/backup/toggle", toggleBackupHandler(closeSvc, logger))

		// Legacy consolidation
		r.Post("/migration/run", migrationRunHandler(migration, logger))
		r.Get("/migration/status", migrationStatusHandler(migration, metrics, logger))
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler reports ready; while a consolidation could still be pending
// for some profile, the API stays usable (the UI shows its own "preparing
// data" state off the migration status endpoint).
func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
