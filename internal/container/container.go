package container

import (
	"context"

	"survivaldash/adapters/warehouse"
	"survivaldash/app"
	"survivaldash/domain/filter"
	"survivaldash/internal"
	"survivaldash/internal/config"
	"survivaldash/internal/errors"
	"survivaldash/internal/migration"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	Session *warehouse.Session

	// Filter definitions with options loaded from the warehouse
	Catalog *filter.Catalog

	// Services
	Analysis   *app.AnalysisService
	Prediction *app.PredictionService
}

// Options control what New does beyond opening the session.
type Options struct {
	// Migrate creates the passenger table (and the postgres stand-in scoring
	// function) when missing.
	Migrate bool
	// SkipOptions leaves the filter options unloaded, for commands that
	// never render a filter.
	SkipOptions bool
}

// New opens the warehouse session and wires every service on top of it.
func New(ctx context.Context, cfg *config.Config, logger *internal.Logger, opts Options) (*Container, error) {
	if logger == nil {
		logger = internal.NewNopLogger()
	}

	session, err := warehouse.Open(ctx, cfg.Warehouse, logger)
	if err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, Logger: logger, Session: session}

	if opts.Migrate {
		fn := ""
		if cfg.Warehouse.Driver == warehouse.DriverPostgres {
			fn = cfg.Warehouse.ScoringFunction
		}
		runner := migration.NewRunner(cfg.Warehouse.Driver, cfg.Warehouse.Table, fn)
		if err := runner.Run(ctx, session.DB()); err != nil {
			session.Close()
			return nil, errors.Wrap(err, "warehouse migration failed")
		}
		logger.Info("warehouse schema at version %s", runner.Version())
	}

	catalog, err := filter.NewCatalog(filter.DefaultDefinitions()...)
	if err != nil {
		session.Close()
		return nil, err
	}
	if !opts.SkipOptions {
		if err := catalog.LoadOptions(ctx, session.Table(cfg.Warehouse.Table)); err != nil {
			session.Close()
			return nil, errors.Wrap(err, "failed to load filter options")
		}
	}
	c.Catalog = catalog

	c.Prediction, err = app.NewPredictionService(session, cfg.Warehouse.ScoringFunction, cfg.Prediction.CacheSize, logger)
	if err != nil {
		session.Close()
		return nil, err
	}
	c.Analysis = app.NewAnalysisService(session, catalog, cfg.Warehouse.Table, logger)

	return c, nil
}

// Close releases the warehouse session and flushes the logger.
func (c *Container) Close() error {
	c.Logger.Sync()
	return c.Session.Close()
}
