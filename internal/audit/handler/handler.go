package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"audittrail/internal/audit"
	"audittrail/internal/entity"
)

const defaultRecentLimit = 50

// EventRecorder is the slice of the recorder the HTTP layer needs: accepting
// custom events on behalf of callers that can't link the core directly.
type EventRecorder interface {
	RecordCustomEvent(ctx context.Context, subject audit.Subject, event string, data map[string]any) (*audit.Record, error)
}

// Handler is the HTTP surface over audit records: listing history and
// accepting custom events. It delegates to the store and recorder and keeps
// transport concerns out of the core.
type Handler struct {
	store    audit.Store
	recorder EventRecorder
	logger   *slog.Logger
}

func New(store audit.Store, recorder EventRecorder, logger *slog.Logger) *Handler {
	return &Handler{store: store, recorder: recorder, logger: logger}
}

// Routes wires the audit endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/subjects/{model}/{id}/audit", h.listBySubject)
	r.Get("/audit/recent", h.listRecent)
	r.Post("/subjects/{model}/{id}/events", h.recordEvent)
	return r
}

func (h *Handler) listBySubject(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	id := chi.URLParam(r, "id")

	var records []audit.Record
	var err error
	if eventType := r.URL.Query().Get("type"); eventType != "" {
		records, err = h.store.ListBySubjectAndType(r.Context(), model, id, audit.EventType(eventType))
	} else {
		records, err = h.store.ListBySubject(r.Context(), model, id)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, map[string]any{"records": emptyIfNil(records)})
}

func (h *Handler) listRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	records, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, map[string]any{"records": emptyIfNil(records)})
}

type recordEventRequest struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func (h *Handler) recordEvent(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	id := chi.URLParam(r, "id")

	var req recordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Event == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "event name is required"})
		return
	}

	subject := entity.NewModel(&entity.Schema{Name: model})
	subject.SetID(id)

	rec, err := h.recorder.RecordCustomEvent(r.Context(), subject, req.Event, req.Data)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if rec == nil {
		// Auditing suppressed; acknowledge without a record.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(r.Context(), "encode response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "audit query failed", "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal"})
}

func emptyIfNil(records []audit.Record) []audit.Record {
	if records == nil {
		return []audit.Record{}
	}
	return records
}
