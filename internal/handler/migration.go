package handler

import (
	"net/http"
	"time"

	"github.com/hmoreno/cierre-fiscal/internal/infra/observability"
	"github.com/hmoreno/cierre-fiscal/internal/service"

	"go.uber.org/zap"
)

func migrationRunHandler(engine *service.MigrationEngine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "migrationRun")
		defer span.End()

		profile := ProfileFromContext(ctx)
		report, err := engine.Run(ctx, profile.ID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		status := http.StatusOK
		if !report.Skipped {
			status = http.StatusCreated
		}
		writeJSON(w, status, report)
	}
}

type migrationStatusResponse struct {
	Complete    bool    `json:"complete"`
	CompletedAt *string `json:"completed_at,omitempty"`
	Runs        struct {
		Success float64 `json:"success"`
		Failed  float64 `json:"failed"`
		Skipped float64 `json:"skipped"`
	} `json:"runs"`
}

func migrationStatusHandler(engine *service.MigrationEngine, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "migrationStatus")
		defer span.End()

		profile := ProfileFromContext(ctx)
		status, err := engine.Status(ctx, profile.ID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var resp migrationStatusResponse
		if status != nil {
			resp.Complete = status.Complete
			if !status.CompletedAt.IsZero() {
				s := status.CompletedAt.UTC().Format(time.RFC3339)
				resp.CompletedAt = &s
			}
		}
		resp.Runs.Success, resp.Runs.Failed, resp.Runs.Skipped = metrics.MigrationCounts()
		writeJSON(w, http.StatusOK, resp)
	}
}
