package http

import (
	"time"

	"github.com/sawpanic/baccarun/internal/advisor"
	"github.com/sawpanic/baccarun/internal/analyzers"
	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
	"github.com/sawpanic/baccarun/internal/roadmap"
	"github.com/sawpanic/baccarun/internal/session"
)

// ErrorResponse represents standardized error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionResponse describes a session
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Hands     int       `json:"hands"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionsResponse lists live sessions
type SessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// RecordRequest is the body of POST /sessions/{id}/outcomes
type RecordRequest struct {
	Outcome string `json:"outcome"`
}

// RecordResponse reports a recorded outcome
type RecordResponse struct {
	SessionID string               `json:"session_id"`
	Index     int                  `json:"index"`
	Outcome   outcome.Outcome      `json:"outcome"`
	Hands     int                  `json:"hands"`
	Validated *session.LedgerEntry `json:"validated,omitempty"`
	Credited  string               `json:"credited,omitempty"`
}

// UndoResponse reports the removed outcome; Removed is empty when there was nothing to undo
type UndoResponse struct {
	SessionID string          `json:"session_id"`
	Removed   outcome.Outcome `json:"removed,omitempty"`
	Hands     int             `json:"hands"`
}

// ResetRequest is the optional body of POST /sessions/{id}/reset
type ResetRequest struct {
	// Clear also resets the adaptive weights
	Clear bool `json:"clear"`
}

// PredictionResponse is a served forecast
type PredictionResponse struct {
	SessionID  string             `json:"session_id"`
	Mode       combine.Mode       `json:"mode"`
	Hands      int                `json:"hands"`
	Prediction outcome.Prediction `json:"prediction"`
	Winner     string             `json:"winner,omitempty"`
}

// AdviceResponse is a forecast with its staking advice
type AdviceResponse struct {
	PredictionResponse
	Advice   advisor.Advice `json:"advice"`
	UnitSize string         `json:"unit_size"`
}

// StatsResponse is the shoe summary with the adaptive weights
type StatsResponse struct {
	SessionID       string             `json:"session_id"`
	Stats           session.ShoeStats  `json:"stats"`
	AdaptiveWeights map[string]float64 `json:"adaptive_weights"`
}

// RoadsResponse carries the road structures and any active bridge
type RoadsResponse struct {
	SessionID string                  `json:"session_id"`
	Roads     roadmap.Roads           `json:"roads"`
	Bridge    *analyzers.BridgeReport `json:"bridge,omitempty"`
}

// WeightsResponse lists the weight presets
type WeightsResponse struct {
	Presets []combine.WeightPreset `json:"presets"`
}
