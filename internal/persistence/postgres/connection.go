package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/sawpanic/baccarun/internal/persistence"
)

// Config holds database connection configuration
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// DefaultConfig returns reasonable defaults for database connections
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    3 * time.Second,
	}
}

// Manager owns the connection pool and the ledger repository
type Manager struct {
	db     *sqlx.DB
	ledger persistence.LedgerRepo
	health *healthChecker
}

// Connect opens the pool, pings it and ensures the schema exists
func Connect(ctx context.Context, config Config) (*Manager, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	db, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	m := NewManager(db, config.QueryTimeout)
	if err := m.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// NewManager wraps an open pool
func NewManager(db *sqlx.DB, timeout time.Duration) *Manager {
	return &Manager{
		db:     db,
		ledger: NewLedgerRepo(db, timeout),
		health: &healthChecker{db: db, timeout: timeout},
	}
}

// EnsureSchema creates missing tables
func (m *Manager) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return nil
}

// Ledger returns the ledger repository
func (m *Manager) Ledger() persistence.LedgerRepo { return m.ledger }

// Health returns the health checker
func (m *Manager) Health() persistence.RepositoryHealth { return m.health }

// Close closes the database connection
func (m *Manager) Close() error { return m.db.Close() }

// healthChecker implements persistence.RepositoryHealth
type healthChecker struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Health pings the database and reports pool usage
func (h *healthChecker) Health(ctx context.Context) persistence.HealthCheck {
	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	check := persistence.HealthCheck{Healthy: true, LastCheck: time.Now()}
	if err := h.db.PingContext(pingCtx); err != nil {
		check.Healthy = false
		check.Errors = append(check.Errors, fmt.Sprintf("ping failed: %v", err))
	}
	stats := h.db.Stats()
	check.ConnectionPool = map[string]int{
		"open":   stats.OpenConnections,
		"in_use": stats.InUse,
		"idle":   stats.Idle,
	}
	check.ResponseTimeMS = time.Since(start).Milliseconds()
	return check
}
