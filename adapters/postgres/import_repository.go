package postgres

import (
	"context"
	"database/sql"
	"errors"

	"assetdesk/domain/core"
	"assetdesk/models"
	"assetdesk/ports"

	"github.com/jmoiron/sqlx"
)

const importColumns = `id, file_name, sheet_name, profile, status, row_count,
		imported, skipped, warned, confidence, report, created_at`

// ImportRepositoryImpl implements ImportRepository on sqlx
type ImportRepositoryImpl struct {
	db *sqlx.DB
}

// NewImportRepository creates a new import batch repository
func NewImportRepository(db *sqlx.DB) ports.ImportRepository {
	return &ImportRepositoryImpl{db: db}
}

// Save inserts the batch, or updates counters, status and report when it already exists
func (r *ImportRepositoryImpl) Save(ctx context.Context, batch *models.ImportBatch) error {
	if batch.ID == "" {
		batch.ID = core.NewImportID()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO imports (`+importColumns+`)
		VALUES (
			:id, :file_name, :sheet_name, :profile, :status, :row_count,
			:imported, :skipped, :warned, :confidence, :report, :created_at
		)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			row_count = excluded.row_count,
			imported = excluded.imported,
			skipped = excluded.skipped,
			warned = excluded.warned,
			confidence = excluded.confidence,
			report = excluded.report
	`, batch)
	return err
}

// GetByID retrieves a batch with its report
func (r *ImportRepositoryImpl) GetByID(ctx context.Context, id core.ImportID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := r.db.GetContext(ctx, &batch, r.db.Rebind(`
		SELECT `+importColumns+`
		FROM imports
		WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("import", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// List returns batches, most recent first
func (r *ImportRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*models.ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	batches := []*models.ImportBatch{}
	err := r.db.SelectContext(ctx, &batches, r.db.Rebind(`
		SELECT `+importColumns+`
		FROM imports
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`), limit, offset)
	return batches, err
}
