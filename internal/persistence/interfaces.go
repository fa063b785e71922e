package persistence

import (
	"context"
	"time"

	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/session"
)

// LedgerRepo stores settled predictions across sessions
type LedgerRepo interface {
	// Append inserts one settled prediction
	Append(ctx context.Context, sessionID string, entry session.LedgerEntry) error

	// Recent returns up to limit entries for a session, newest first
	Recent(ctx context.Context, sessionID string, limit int) ([]session.LedgerEntry, error)

	// AccuracyByMode aggregates hit rates for a session
	AccuracyByMode(ctx context.Context, sessionID string) (map[combine.Mode]session.Accuracy, error)
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool,omitempty"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for persistence layer
type RepositoryHealth interface {
	// Health returns current repository health status
	Health(ctx context.Context) HealthCheck
}

var (
	_ session.Store      = (*BreakerStore)(nil)
	_ LedgerRepo         = (*BreakerLedger)(nil)
	_ session.LedgerSink = (*BreakerLedger)(nil)
	_ RepositoryHealth   = (*BreakerStore)(nil)
	_ RepositoryHealth   = (*BreakerLedger)(nil)
)
