package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/baccarun/internal/cache"
	"github.com/sawpanic/baccarun/internal/config"
	"github.com/sawpanic/baccarun/internal/events"
	httpapi "github.com/sawpanic/baccarun/internal/interfaces/http"
	"github.com/sawpanic/baccarun/internal/persistence"
	"github.com/sawpanic/baccarun/internal/persistence/file"
	"github.com/sawpanic/baccarun/internal/persistence/postgres"
	"github.com/sawpanic/baccarun/internal/persistence/redisstore"
	"github.com/sawpanic/baccarun/internal/scheduler"
	"github.com/sawpanic/baccarun/internal/session"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serves the session API with /health, /metrics and a /ws update stream.
Snapshots go to the configured store, settled predictions to postgres when a DSN is set,
and outcome events to RabbitMQ when an AMQP URL is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAppConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: built-in defaults, e.g. "+config.GetDefaultConfigPath()+")")
	cmd.Flags().IntVar(&port, "port", 0, "Override the listen port")
	return cmd
}

func runServe(ctx context.Context, cfg *config.AppConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := buildEngine(cfg.Engine)
	if err != nil {
		return err
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn().Err(err).Msg("Close failed")
			}
		}
	}()

	breaker := persistence.BreakerSettings{
		ConsecutiveFailures: uint32(cfg.Circuit.FailureThreshold),
		OpenTimeout:         cfg.Circuit.GetOpenTimeout(),
	}
	metrics := httpapi.NewMetricsRegistry()
	hub := httpapi.NewHub(metrics)
	checks := map[string]persistence.RepositoryHealth{}

	opts := []session.ManagerOption{
		session.WithDefaultMode(cfg.Engine.Mode()),
		session.WithListener(hub.Publish),
	}

	store, closer, err := openStore(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	if store != nil {
		guarded := persistence.NewBreakerStore("snapshots", store, breaker)
		opts = append(opts, session.WithStore(guarded))
		checks["snapshots"] = guarded
	}

	if cfg.Postgres.DSN != "" {
		pgCfg := postgres.DefaultConfig()
		pgCfg.DSN = cfg.Postgres.DSN
		pgCfg.QueryTimeout = cfg.Postgres.GetTimeout()
		pg, err := postgres.Connect(ctx, pgCfg)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, pg)
		ledger := persistence.NewBreakerLedger("ledger", pg.Ledger(), breaker)
		opts = append(opts, session.WithLedgerSink(ledger))
		checks["postgres"] = pg.Health()
		checks["ledger"] = ledger
		log.Info().Msg("Prediction ledger on postgres")
	}

	forecasts := cache.NewForecasts(cache.NewAuto(cfg.Redis.Addr, cfg.Redis.DB), cfg.Redis.KeyPrefix, cfg.Redis.GetCacheTTL())
	opts = append(opts, session.WithCache(metrics.InstrumentCache(forecasts)))

	if cfg.AMQP.URL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		closers = append(closers, pub)
		opts = append(opts, session.WithPublisher(pub))
		log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("Publishing events to AMQP")
	} else {
		opts = append(opts, session.WithPublisher(events.Noop{}))
	}

	manager := session.NewManager(engine, opts...)

	sched := scheduler.NewScheduler()
	if cfg.Scheduler.FlushSchedule != "" && store != nil {
		if err := sched.AddJob(scheduler.FlushJob(cfg.Scheduler.FlushSchedule, manager)); err != nil {
			return err
		}
	}
	sched.Start(ctx)

	go hub.Run(ctx)

	srv := httpapi.NewServer(*cfg, manager, engine, metrics, hub)
	for name, check := range checks {
		srv.Health().AddCheck(name, check)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	sched.Stop(shutdownCtx)
	if err := manager.Flush(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Final snapshot flush failed")
	}
	return nil
}

// openStore returns the configured snapshot store; memory means none
func openStore(cfg *config.AppConfig) (session.Store, io.Closer, error) {
	switch cfg.Storage.Backend {
	case config.StorageFile:
		s, err := file.NewStore(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.Storage.Dir).Msg("Session snapshots on disk")
		return s, nil, nil
	case config.StorageRedis:
		s, err := redisstore.NewStore(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Session snapshots on redis")
		return s, s, nil
	default:
		return nil, nil, nil
	}
}
