package container

import (
	"context"
	"fmt"

	"assetdesk/adapters/excel"
	"assetdesk/adapters/importing"
	"assetdesk/adapters/importing/schema"
	"assetdesk/adapters/jsonsheet"
	"assetdesk/adapters/postgres"
	"assetdesk/app"
	"assetdesk/internal"
	"assetdesk/internal/config"
	"assetdesk/internal/errors"
	"assetdesk/internal/migration"
	"assetdesk/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	EquipmentRepo ports.EquipmentRepository
	ImportRepo    ports.ImportRepository

	// Import pipeline
	Schema        *schema.Schema
	Engines       []*importing.Engine
	Readers       []ports.SheetReader
	ImportService *app.ImportService
}

// New creates a new dependency injection container and builds everything
// that does not need the database
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if err := c.initEngines(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize import engines")
	}
	c.Readers = []ports.SheetReader{
		excel.NewReader(excel.WithLogger(logger)),
		jsonsheet.NewReader(),
	}
	return c, nil
}

// OpenDatabase connects to the configured database
func OpenDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to database"))
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.Driver == "sqlite3" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// InitWithDatabase runs migrations and initializes components that require
// database access
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	// Run migrations
	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	// Initialize repositories
	c.EquipmentRepo = postgres.NewEquipmentRepository(db)
	c.ImportRepo = postgres.NewImportRepository(db)

	c.ImportService = app.NewImportService(c.Engines, c.Readers, c.EquipmentRepo, c.ImportRepo,
		app.WithWorkers(c.Config.Import.Workers),
		app.WithServiceLogger(c.Logger))

	c.Logger.Info("container initialized: driver %s, schema %s v%d, migrations %s",
		db.DriverName(), c.Schema.Profile(), c.Schema.Version(), migrator.Version())
	return nil
}

// initEngines builds the primary engine from the configured schema, followed
// by one engine per remaining built-in profile
func (c *Container) initEngines() error {
	s, err := LoadSchema(c.Config.Import)
	if err != nil {
		return err
	}
	c.Schema = s
	c.Engines = []*importing.Engine{importing.NewEngine(s, importing.WithLogger(c.Logger))}

	for _, profile := range schema.Profiles() {
		if profile == s.Profile() {
			continue
		}
		other, err := schema.Builtin(profile)
		if err != nil {
			return err
		}
		c.Engines = append(c.Engines, importing.NewEngine(other, importing.WithLogger(c.Logger)))
	}
	return nil
}

// LoadSchema resolves the active schema: SchemaFile when set, else the named
// built-in profile, with the acceptance threshold overridden when configured
func LoadSchema(cfg config.ImportConfig) (*schema.Schema, error) {
	var (
		s   *schema.Schema
		err error
	)
	if cfg.SchemaFile != "" {
		s, err = schema.LoadFile(cfg.SchemaFile)
	} else {
		s, err = schema.Builtin(cfg.Profile)
	}
	if err != nil {
		return nil, err
	}
	if cfg.AcceptThreshold > 0 {
		return s.WithThreshold(cfg.AcceptThreshold)
	}
	return s, nil
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	_ = c.Logger.Sync()

	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
