package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hmoreno/cierre-fiscal/internal/domain"
	"github.com/hmoreno/cierre-fiscal/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// createRecordRequest is the tagged ingestion payload: kind selects the
// variant, default_type classifies documents that serve both directions.
type createRecordRequest struct {
	Kind        string                  `json:"kind"`
	Bank        *domain.RawBankMovement `json:"bank,omitempty"`
	Invoice     *domain.RawInvoice      `json:"invoice,omitempty"`
	Manual      *domain.RawManualEntry  `json:"manual,omitempty"`
	DefaultType string                  `json:"default_type,omitempty"`
}

func (req *createRecordRequest) input() (domain.RawInput, error) {
	switch req.Kind {
	case "bank":
		if req.Bank == nil {
			return nil, &domain.ErrValidation{Field: "bank", Message: "required for kind=bank"}
		}
		return *req.Bank, nil
	case "invoice":
		if req.Invoice == nil {
			return nil, &domain.ErrValidation{Field: "invoice", Message: "required for kind=invoice"}
		}
		return *req.Invoice, nil
	case "manual":
		if req.Manual == nil {
			return nil, &domain.ErrValidation{Field: "manual", Message: "required for kind=manual"}
		}
		return *req.Manual, nil
	}
	return nil, &domain.ErrValidation{Field: "kind", Message: "must be bank, invoice or manual"}
}

func createRecordHandler(svc *service.CloseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "createRecord")
		defer span.End()

		var req createRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		in, err := req.input()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		opts := service.NormalizeOptions{}
		if t := domain.RecordType(req.DefaultType); domain.ValidRecordType(t) {
			opts.DefaultType = t
		}

		rec, err := svc.CreateRecord(ctx, ProfileFromContext(ctx), in, opts)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func listRecordsHandler(svc *service.CloseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "listRecords")
		defer span.End()

		month := r.URL.Query().Get("month")
		recs, err := svc.ListRecords(ctx, ProfileFromContext(ctx), month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if recs == nil {
			recs = []domain.FinancialRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func deleteRecordHandler(svc *service.CloseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "deleteRecord")
		defer span.End()

		recordID := chi.URLParam(r, "recordID")
		if err := svc.DeleteRecord(ctx, ProfileFromContext(ctx), recordID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
