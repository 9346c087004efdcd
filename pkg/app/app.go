// Package app assembles the depot services from configuration. The run
// command and the API tests share it so both exercise the same wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fleetworks/depot/pkg/api"
	"fleetworks/depot/pkg/api/middleware"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/auth"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/fleet/documents"
	"fleetworks/depot/pkg/fleet/fuel"
	"fleetworks/depot/pkg/fleet/geofence"
	"fleetworks/depot/pkg/fleet/inspections"
	"fleetworks/depot/pkg/fleet/maintenance"
	"fleetworks/depot/pkg/fleet/obd"
	"fleetworks/depot/pkg/fleet/parts"
	"fleetworks/depot/pkg/fleet/workorders"
	"fleetworks/depot/pkg/forms"
	"fleetworks/depot/pkg/telemetry/health"
	"fleetworks/depot/pkg/telemetry/metrics"
	"fleetworks/depot/pkg/telemetry/tracing"

	"github.com/jmoiron/sqlx"
)

// App holds the services of one depot process.
type App struct {
	Config *config.Config
	DB     *sqlx.DB

	Metrics     *metrics.Collector
	Tracer      *tracing.Tracer
	Health      *health.Checker
	RateLimiter *middleware.RateLimiter

	AuditStore *audit.Store
	Recorder   *audit.Recorder
	APIKeys    *auth.APIKeyValidator

	Auth        *auth.Service
	Assets      *assets.Service
	Parts       *parts.Service
	WorkOrders  *workorders.Service
	Inspections *inspections.Service
	Forms       *forms.Service
	Geofences   *geofence.Service
	Fuel        *fuel.Service
	Documents   *documents.Service
	Maintenance *maintenance.Service
	OBD         *obd.Service
	Scheduler   *maintenance.Scheduler
}

// Options adjust how New builds an App.
type Options struct {
	// Version is reported as the tracing service version.
	Version string

	// Metrics replaces the collector built from configuration. Tests use
	// it to observe a private registry.
	Metrics *metrics.Collector

	// Auditor replaces the asynchronous audit recorder.
	Auditor audit.Auditor
}

// New wires every service on db. The caller owns db; Close releases what
// New started.
func New(ctx context.Context, cfg *config.Config, db *sqlx.DB, opts Options) (*App, error) {
	a := &App{Config: cfg, DB: db}

	a.Metrics = opts.Metrics
	if a.Metrics == nil && cfg.Telemetry.Metrics.Enabled {
		a.Metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing, opts.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.Tracer = tracer

	a.AuditStore = audit.NewStore(db)
	a.AuditStore.SetMaxLimit(cfg.Audit.QueryMaxLimit)
	auditor := opts.Auditor
	if auditor == nil {
		a.Recorder = audit.NewRecorder(a.AuditStore, audit.Config{
			AsyncBuffer:  cfg.Audit.AsyncBuffer,
			WriteTimeout: cfg.Audit.WriteTimeout,
		}, a.Metrics)
		auditor = a.Recorder
	}

	blobs, err := documents.NewLocalStore(cfg.Documents.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	a.APIKeys = auth.NewAPIKeyValidator(cfg.Auth.APIKeys)
	a.Auth = auth.NewService(
		auth.NewUserStore(db),
		auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		a.APIKeys,
		auditor,
		cfg.Auth.BcryptCost,
	)

	a.Assets = assets.NewService(db, auditor)
	a.Parts = parts.NewService(db, auditor)
	a.WorkOrders = workorders.NewService(db, auditor, a.Metrics)
	a.Inspections = inspections.NewService(db, a.WorkOrders, auditor, cfg.Inspections)
	a.Forms = forms.NewService(db, auditor, a.Metrics, cfg.Forms)
	a.Geofences = geofence.NewService(db, auditor, a.Metrics, cfg.Geofence)
	a.Fuel = fuel.NewService(db, auditor)
	a.Documents = documents.NewService(db, blobs, auditor, cfg.Documents)
	a.Maintenance = maintenance.NewService(db, a.WorkOrders, auditor, a.Metrics, cfg.Maintenance)
	a.OBD = obd.NewService(db, a.WorkOrders, auditor, cfg.OBD)

	if cfg.Maintenance.Enabled {
		a.Scheduler = maintenance.NewScheduler(a.Maintenance, cfg.Maintenance.Schedule)
	}
	if cfg.RateLimit.Enabled {
		a.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	a.Health = health.New(0)
	a.Health.RegisterCheck("database", health.DatabaseCheck(db))
	a.Health.RegisterCheck("documents", health.DirectoryCheck(cfg.Documents.Root))

	return a, nil
}

// APIDeps returns the dependencies of the HTTP API.
func (a *App) APIDeps() api.Deps {
	return api.Deps{
		Config:      a.Config,
		Auth:        a.Auth,
		Assets:      a.Assets,
		Parts:       a.Parts,
		WorkOrders:  a.WorkOrders,
		Inspections: a.Inspections,
		Forms:       a.Forms,
		Geofences:   a.Geofences,
		Fuel:        a.Fuel,
		Documents:   a.Documents,
		Maintenance: a.Maintenance,
		OBD:         a.OBD,
		Audit:       a.AuditStore,
		Metrics:     a.Metrics,
		Tracer:      a.Tracer,
		RateLimiter: a.RateLimiter,
	}
}

// Reload swaps the API keys after a configuration change. Everything else
// needs a restart; the caller adjusts the log level.
func (a *App) Reload(cfg *config.Config) {
	a.APIKeys.Replace(cfg.Auth.APIKeys)
	slog.Info("configuration reloaded", "api_keys", a.APIKeys.Count())
}

// Close drains the audit recorder and flushes traces.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Recorder != nil {
		errs = append(errs, a.Recorder.Close())
	}
	errs = append(errs, a.Tracer.Shutdown(ctx))
	return errors.Join(errs...)
}
