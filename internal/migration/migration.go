package migration

import (
	"context"
	"fmt"

	"assetdesk/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations for PostgreSQL and SQLite
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "2.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// dialect holds the column types that differ between drivers
type dialect struct {
	json      string
	timestamp string
	now       string
}

func dialectFor(db *sqlx.DB) (dialect, error) {
	switch db.DriverName() {
	case "postgres", "pgx":
		return dialect{json: "JSONB", timestamp: "TIMESTAMP WITH TIME ZONE", now: "NOW()"}, nil
	case "sqlite3", "sqlite":
		return dialect{json: "TEXT", timestamp: "TIMESTAMP", now: "CURRENT_TIMESTAMP"}, nil
	default:
		return dialect{}, errors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", db.DriverName()))
	}
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	d, err := dialectFor(db)
	if err != nil {
		return err
	}

	if err := r.createImportsTable(ctx, db, d); err != nil {
		return errors.Wrap(err, "failed to create imports table")
	}

	if err := r.createEquipmentTable(ctx, db, d); err != nil {
		return errors.Wrap(err, "failed to create equipment table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createImportsTable(ctx context.Context, db *sqlx.DB, d dialect) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS imports (
			id VARCHAR(36) PRIMARY KEY,
			file_name TEXT NOT NULL,
			sheet_name TEXT NOT NULL DEFAULT '',
			profile VARCHAR(50) NOT NULL,
			status VARCHAR(20) NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0,
			imported INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			warned INTEGER NOT NULL DEFAULT 0,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			report %s NOT NULL,
			created_at %s NOT NULL DEFAULT %s
		)
	`, d.json, d.timestamp, d.now))
	return err
}

func (r *MigrationRunner) createEquipmentTable(ctx context.Context, db *sqlx.DB, d dialect) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS equipment (
			id VARCHAR(36) PRIMARY KEY,
			import_id VARCHAR(36) REFERENCES imports(id) ON DELETE SET NULL,
			profile VARCHAR(50) NOT NULL,
			row_index INTEGER NOT NULL DEFAULT 0,
			type VARCHAR(50) NOT NULL,
			marque TEXT NOT NULL DEFAULT '',
			modele TEXT NOT NULL DEFAULT '',
			identifier TEXT,
			proprietaire TEXT NOT NULL DEFAULT '',
			departement TEXT NOT NULL DEFAULT '',
			date_acquisition VARCHAR(10) NOT NULL DEFAULT '',
			est_premiere_main BOOLEAN NOT NULL DEFAULT FALSE,
			attributes %[1]s NOT NULL,
			specifications %[1]s NOT NULL,
			warnings %[1]s NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at %[2]s NOT NULL DEFAULT %[3]s,
			UNIQUE (profile, identifier)
		)
	`, d.json, d.timestamp, d.now))
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_equipment_import ON equipment(import_id)`,
		`CREATE INDEX IF NOT EXISTS idx_equipment_profile_type ON equipment(profile, type)`,
		`CREATE INDEX IF NOT EXISTS idx_imports_created ON imports(created_at DESC)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
