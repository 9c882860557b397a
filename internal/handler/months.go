package handler

import (
	"net/http"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
	"github.com/hmoreno/cierre-fiscal/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func snapshotHandler(svc *service.CloseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "snapshot")
		defer span.End()

		month := chi.URLParam(r, "month")
		snap, err := svc.Snapshot(ctx, ProfileFromContext(ctx), month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func taxEstimateHandler(svc *service.CloseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "taxEstimate")
		defer span.End()

		month := chi.URLParam(r, "month")
		est, err := svc.Estimate(ctx, ProfileFromContext(ctx), month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, est)
	}
}

// journeyResponse pairs the evaluated state with the first actionable step,
// so clients do not re-derive step ordering.
type journeyResponse struct {
	Journey    domain.JourneyState `json:"journey"`
	NextAction *domain.Step        `json:"next_action,omitempty"`
}

func journeyHandler(svc *service.CloseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "journey")
		defer span.End()

		month := chi.URLParam(r, "month")
		state, err := svc.Journey(ctx, ProfileFromContext(ctx), month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, journeyResponse{
			Journey:    *state,
			NextAction: service.NextAction(*state),
		})
	}
}

func toggleBackupHandler(svc *service.CloseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "toggleBackup")
		defer span.End()

		month := chi.URLParam(r, "month")
		state, err := svc.ToggleBackup(ctx, ProfileFromContext(ctx), month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, journeyResponse{
			Journey:    *state,
			NextAction: service.NextAction(*state),
		})
	}
}
