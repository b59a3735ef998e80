// Package app builds the service graph shared by every binary.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/blankhall98/Metaleria-API/internal/accounting"
	"github.com/blankhall98/Metaleria-API/internal/cron"
	"github.com/blankhall98/Metaleria-API/internal/inventory"
	"github.com/blankhall98/Metaleria-API/internal/materials"
	"github.com/blankhall98/Metaleria-API/internal/notes"
	"github.com/blankhall98/Metaleria-API/internal/partners"
	"github.com/blankhall98/Metaleria-API/internal/payments"
	"github.com/blankhall98/Metaleria-API/internal/pricing"
	"github.com/blankhall98/Metaleria-API/pkg/config"
	"github.com/blankhall98/Metaleria-API/pkg/db"
	"github.com/blankhall98/Metaleria-API/pkg/logger"
	"github.com/blankhall98/Metaleria-API/pkg/metrics"
	"github.com/blankhall98/Metaleria-API/pkg/migrate"
	"github.com/blankhall98/Metaleria-API/pkg/outbox"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/idempotency"
	"github.com/blankhall98/Metaleria-API/pkg/redis"
)

const cronLockName = "cron-worker"

// App holds the infrastructure clients and domain services of one process.
type App struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	// Redis is nil when no endpoint is configured.
	Redis *redis.Client

	Outbox     *outbox.Service
	OutboxRepo *outbox.Repository
	Materials  materials.Service
	Partners   partners.Service
	Pricing    pricing.Service
	Inventory  inventory.Service
	Accounting accounting.Service
	Payments   payments.Service
	Notes      notes.Service

	NoteMetrics *metrics.NoteMetrics

	notesRepo     notes.Repository
	paymentsRepo  payments.Repository
	inventoryRepo inventory.Repository
}

// New connects to the database (and Redis when configured), runs dev
// migrations and wires every service. Metrics register on reg when it is not nil.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	a := &App{Config: cfg, Logger: logg, DB: dbClient}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return nil, multierr.Append(fmt.Errorf("dev migrations: %w", err), a.Close())
	}

	if cfg.Redis.Enabled() {
		a.Redis, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("bootstrap redis: %w", err), a.Close())
		}
	} else {
		logg.Warn(ctx, "redis not configured, payment idempotency falls back to the database")
	}

	if err := a.wire(reg); err != nil {
		return nil, multierr.Append(err, a.Close())
	}
	return a, nil
}

func (a *App) wire(reg prometheus.Registerer) error {
	conn := a.DB.DB()
	a.NoteMetrics = metrics.NewNoteMetrics(reg)
	a.OutboxRepo = outbox.NewRepository(conn)
	a.Outbox = outbox.NewService(a.OutboxRepo, a.Logger)

	var err error
	if a.Materials, err = materials.NewService(materials.NewRepository(conn)); err != nil {
		return err
	}
	if a.Partners, err = partners.NewService(partners.NewRepository(conn)); err != nil {
		return err
	}
	if a.Pricing, err = pricing.NewService(pricing.NewRepository(conn), a.DB, a.Outbox, a.Materials, a.Logger); err != nil {
		return err
	}
	a.inventoryRepo = inventory.NewRepository(conn)
	if a.Inventory, err = inventory.NewService(a.inventoryRepo, a.NoteMetrics); err != nil {
		return err
	}
	if a.Accounting, err = accounting.NewService(accounting.NewRepository(conn)); err != nil {
		return err
	}
	a.paymentsRepo = payments.NewRepository(conn)
	if a.Payments, err = payments.NewService(a.paymentsRepo, a.Accounting); err != nil {
		return err
	}

	a.notesRepo = notes.NewRepository(conn)
	params := notes.ServiceParams{
		Repo:       a.notesRepo,
		Tx:         a.DB,
		Outbox:     a.Outbox,
		Materials:  a.Materials,
		Prices:     a.Pricing,
		Inventory:  a.Inventory,
		Accounting: a.Accounting,
		Payments:   a.Payments,
		Partners:   a.Partners,
		Metrics:    a.NoteMetrics,
		Logger:     a.Logger,
	}
	if a.Redis != nil {
		guard, err := idempotency.NewManager(a.Redis, a.Config.Eventing.PaymentIdempotencyTTL)
		if err != nil {
			return fmt.Errorf("payment idempotency: %w", err)
		}
		params.Idempotency = guard
	}
	if a.Notes, err = notes.NewService(params); err != nil {
		return err
	}
	return nil
}

// CronRegistry builds the scheduled jobs: the ledger audit and the outbox retention purge.
func (a *App) CronRegistry(jobMetrics *metrics.CronJobMetrics) (*cron.Registry, error) {
	audit, err := cron.NewLedgerAuditJob(cron.LedgerAuditJobParams{
		Logger:    a.Logger,
		Notes:     a.notesRepo,
		Payments:  a.paymentsRepo,
		Inventory: a.inventoryRepo,
		Metrics:   jobMetrics,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        a.Logger,
		DB:            a.DB,
		Repository:    a.OutboxRepo,
		RetentionDays: a.Config.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(audit, retention)
}

// CronLock returns a Redis lock shared by every worker, or a process-local
// lock when Redis is not configured.
func (a *App) CronLock() (cron.Lock, error) {
	if a.Redis == nil {
		return &cron.LocalLock{}, nil
	}
	return cron.NewRedisLock(a.Redis, a.Redis.LockKey(cronLockName, a.envName()), a.Config.Cron.LockTTL)
}

func (a *App) envName() string {
	if a.Config.App.Env == "" {
		return "local"
	}
	return a.Config.App.Env
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var err error
	if a.Redis != nil {
		err = multierr.Append(err, a.Redis.Close())
	}
	if a.DB != nil {
		err = multierr.Append(err, a.DB.Close())
	}
	return err
}
