package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/config"
	"github.com/researchgate/crossref-snapshot-mount/internal/health"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/bigquery"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/blob"
	redisclient "github.com/researchgate/crossref-snapshot-mount/internal/infra/redis"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage/memory"
	"github.com/researchgate/crossref-snapshot-mount/internal/infra/storage/postgres"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/retryer"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/run"
	"github.com/researchgate/crossref-snapshot-mount/internal/loader/submit"
)

// App assembles the load pipeline: blob inventory, throttled submitter,
// classifier, durable ledger, retry driver, and the optional health server.
type App struct {
	cfg          *config.AppConfig
	Ledger       storage.LedgerRepository
	Runner       *run.Runner
	Retryer      *retryer.Driver
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewApp creates an App with all dependencies initialized. The ledger
// backend is selected by configuration: postgres when a database URL is set
// (migrations run at startup), redis when a redis URL is set, in-memory
// otherwise. The in-memory ledger does not survive restarts and is only
// suitable for dry runs.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log := slog.Default()

	// 1. Initialize the ledger
	var ledger storage.LedgerRepository
	var db *postgres.DB
	var redisClient *redisclient.Client
	checkers := make(map[string]health.Checker)

	switch {
	case cfg.Database.URL != "":
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		ledger = postgres.NewLedgerRepo(db)
		checkers["postgres"] = db
		log.Info("Using PostgreSQL ledger")

	case cfg.Redis.URL != "":
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		ledger = redisclient.NewLedgerRepo(redisClient, cfg.Target.Table)
		checkers["redis"] = redisClient
		log.Info("Using Redis ledger")

	default:
		ledger = memory.NewLedgerRepo()
		log.Warn("Using in-memory ledger; failures will not survive restart")
	}

	// 2. Remote clients
	store, err := blob.New(ctx, blob.Config{
		Region:   cfg.Source.Region,
		Endpoint: cfg.Source.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init blob store: %w", err)
	}

	loadClient, err := bigquery.NewLoader(ctx, bigquery.Config{
		Project:       cfg.Target.Project,
		Dataset:       cfg.Target.Dataset,
		Table:         cfg.Target.Table,
		SchemaFile:    cfg.Target.SchemaFile,
		MaxBadRecords: cfg.Target.MaxBadRecords,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init load client: %w", err)
	}

	// 3. Pipeline
	submitter := submit.New(loadClient, cfg.Load.SubmitDelay, cfg.Load.SettleDelay)
	runner := run.NewRunner(store, submitter, ledger, run.Config{
		Bucket:          cfg.Source.Bucket,
		Prefix:          cfg.Source.Prefix,
		Suffix:          cfg.Source.Suffix,
		BatchSize:       cfg.Load.BatchSize,
		MaxJobsPerRun:   cfg.Load.MaxJobsPerRun,
		MaxListAttempts: cfg.Load.MaxListAttempts,
	}, log)

	driver := retryer.NewDriver(ledger, runner, retryer.Config{
		BatchSize:     cfg.Load.RetryBatchSize,
		MaxJobsPerRun: cfg.Load.MaxJobsPerRun,
	}, log)

	app := &App{
		cfg:         cfg,
		Ledger:      ledger,
		Runner:      runner,
		Retryer:     driver,
		db:          db,
		redisClient: redisClient,
		log:         log,
	}

	if cfg.Server.Port > 0 {
		app.healthServer = health.NewServer(ledger, checkers, cfg.Server.Port)
	}

	return app, nil
}

// Start launches the health server when configured.
func (a *App) Start(ctx context.Context) error {
	if a.healthServer == nil {
		return nil
	}
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()
	a.log.Info("Health server started", "port", a.cfg.Server.Port)
	return nil
}

// Stop shuts down the health server and closes backend connections.
func (a *App) Stop(ctx context.Context) error {
	if a.healthServer != nil {
		if err := a.healthServer.Stop(ctx); err != nil {
			return err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return err
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			return err
		}
	}
	return nil
}
