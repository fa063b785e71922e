package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
	"github.com/sawpanic/baccarun/internal/session"
)

const maxBodyBytes = 1 << 20

// Handlers serves the session API
type Handlers struct {
	manager     *session.Manager
	engine      *combine.Engine
	metrics     *MetricsRegistry
	defaultMode combine.Mode
}

// NewHandlers creates the API handlers; an invalid default mode falls back to balanced
func NewHandlers(manager *session.Manager, engine *combine.Engine, metrics *MetricsRegistry, defaultMode combine.Mode) *Handlers {
	mode, err := combine.ParseMode(string(defaultMode))
	if err != nil {
		mode = combine.Balanced
	}
	if metrics == nil {
		metrics = NewMetricsRegistry()
	}
	return &Handlers{manager: manager, engine: engine, metrics: metrics, defaultMode: mode}
}

// writeJSON writes JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes standardized error response
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// writeDomainError maps domain errors to status codes
func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, outcome.ErrMalformedInput):
		h.writeError(w, r, http.StatusBadRequest, "malformed_outcome", err.Error())
	case errors.Is(err, combine.ErrUnknownMode):
		h.writeError(w, r, http.StatusBadRequest, "unknown_mode", err.Error())
	case errors.Is(err, session.ErrInvalidSnapshot):
		h.writeError(w, r, http.StatusBadRequest, "invalid_snapshot", err.Error())
	default:
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("Request failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

func (h *Handlers) mode(r *http.Request) (combine.Mode, error) {
	raw := r.URL.Query().Get("mode")
	if raw == "" {
		return h.defaultMode, nil
	}
	return combine.ParseMode(raw)
}

// CreateSession handles POST /sessions
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Create(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.metrics.ActiveSessions.Set(float64(len(h.manager.IDs())))
	h.writeJSON(w, http.StatusCreated, SessionResponse{SessionID: s.ID(), Hands: s.Len(), UpdatedAt: s.UpdatedAt()})
}

// ListSessions handles GET /sessions
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, SessionsResponse{Sessions: h.manager.IDs()})
}

// DeleteSession handles DELETE /sessions/{id}
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.manager.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.metrics.ActiveSessions.Set(float64(len(h.manager.IDs())))
	w.WriteHeader(http.StatusNoContent)
}

// RecordOutcome handles POST /sessions/{id}/outcomes
func (h *Handlers) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req RecordRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", "body must be {\"outcome\": \"P|B|T\"}")
		return
	}

	rec, err := h.manager.Record(r.Context(), id, req.Outcome)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.metrics.Outcomes.WithLabelValues(string(rec.Outcome)).Inc()

	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if rec.Validated != nil {
		h.metrics.RecordAccuracy(session.MeasureAccuracy(s.Ledger()))
	}
	h.writeJSON(w, http.StatusCreated, RecordResponse{
		SessionID: id,
		Index:     rec.Index,
		Outcome:   rec.Outcome,
		Hands:     s.Len(),
		Validated: rec.Validated,
		Credited:  rec.Credited,
	})
}

// UndoOutcome handles DELETE /sessions/{id}/outcomes/last; undoing an empty shoe is a no-op
func (h *Handlers) UndoOutcome(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	removed, err := h.manager.Undo(r.Context(), id)
	if err != nil && !errors.Is(err, session.ErrEmptySequence) {
		h.writeDomainError(w, r, err)
		return
	}
	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, UndoResponse{SessionID: id, Removed: removed, Hands: s.Len()})
}

// ResetSession handles POST /sessions/{id}/reset with an optional {"clear": true} body
func (h *Handlers) ResetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req ResetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, r, http.StatusBadRequest, "invalid_body", "body must be {\"clear\": bool}")
			return
		}
	}
	if err := h.manager.Reset(r.Context(), id, req.Clear); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Hands: s.Len(), UpdatedAt: s.UpdatedAt()})
}

// Prediction handles GET /sessions/{id}/prediction?mode=
func (h *Handlers) Prediction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	mode, err := h.mode(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	start := time.Now()
	f, err := h.manager.Predict(r.Context(), id, mode)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.metrics.RecordForecast(f, time.Since(start))
	h.writeJSON(w, http.StatusOK, predictionResponse(id, f))
}

// Explain handles GET /sessions/{id}/explain?mode=; it does not mark a prediction as served
func (h *Handlers) Explain(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	mode, err := h.mode(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	f, err := s.Peek(mode)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, f.Explanation)
}

// Advice handles GET /sessions/{id}/advice?mode=
func (h *Handlers) Advice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	mode, err := h.mode(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	start := time.Now()
	f, a, err := h.manager.Advise(r.Context(), id, mode)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.metrics.RecordForecast(f, time.Since(start))
	h.writeJSON(w, http.StatusOK, AdviceResponse{
		PredictionResponse: predictionResponse(id, f),
		Advice:             a,
		UnitSize:           a.UnitSize(),
	})
}

// Stats handles GET /sessions/{id}/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatsResponse{SessionID: id, Stats: s.Stats(), AdaptiveWeights: s.AdaptiveWeights()})
}

// Roads handles GET /sessions/{id}/roads
func (h *Handlers) Roads(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	resp := RoadsResponse{SessionID: id, Roads: s.Roads()}
	if report, ok := s.Bridges(); ok {
		resp.Bridge = &report
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Export handles GET /sessions/{id}/export
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Export())
}

// Import handles POST /sessions/{id}/import with a snapshot body
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	snap, err := session.UnmarshalSnapshot(body)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.manager.Import(r.Context(), id, snap); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	s, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Hands: s.Len(), UpdatedAt: s.UpdatedAt()})
}

// Weights handles GET /weights
func (h *Handlers) Weights(w http.ResponseWriter, r *http.Request) {
	wm := h.engine.Weights()
	resp := WeightsResponse{Presets: []combine.WeightPreset{}}
	for _, m := range wm.Modes() {
		if p, ok := wm.GetPreset(m); ok {
			resp.Presets = append(resp.Presets, p)
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func predictionResponse(id string, f session.Forecast) PredictionResponse {
	return PredictionResponse{
		SessionID:  id,
		Mode:       f.Mode,
		Hands:      f.Hands,
		Prediction: f.Prediction,
		Winner:     f.Winner,
	}
}
