package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"assetdesk/domain/core"
	"assetdesk/domain/importing/mapping"
	apperrors "assetdesk/internal/errors"
	"assetdesk/internal/migration"
	"assetdesk/models"
	"assetdesk/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(context.Background(), db))
	return db
}

func newEquipment(profile, identifier string, importID core.ImportID, row int) *models.Equipment {
	rec := mapping.NewMappedRecord(row)
	rec.Set("type", "portable-computer")
	rec.Set("marque", "Dell")
	rec.Set("modele", "Latitude 5520")
	rec.Set("serial_number", identifier)
	rec.Set("est_premiere_main", true)
	rec.Set("specifications.ram", "16 GB")
	rec.AddWarning("unrecognized equipment type")
	rec.Confidence = 0.9
	return models.NewEquipmentFromRecord(profile, "serial_number", importID, rec)
}

func saveBatch(t *testing.T, repo ports.ImportRepository) *models.ImportBatch {
	t.Helper()
	batch := &models.ImportBatch{
		ID:        core.NewImportID(),
		FileName:  "parc.xlsx",
		SheetName: "Feuil1",
		Profile:   "it",
		Status:    models.ImportRunning,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Save(context.Background(), batch))
	return batch
}

func TestEquipmentCreateAndGet(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	batch := saveBatch(t, NewImportRepository(db))
	repo := NewEquipmentRepository(db)

	eq := newEquipment("it", "SN-1", batch.ID, 0)
	require.NoError(t, repo.Create(ctx, eq))

	got, err := repo.GetByID(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, eq.ID, got.ID)
	require.NotNil(t, got.ImportID)
	assert.Equal(t, batch.ID, *got.ImportID)
	assert.Equal(t, "Dell", got.Marque)
	assert.Equal(t, sql.NullString{String: "SN-1", Valid: true}, got.Identifier)
	assert.True(t, got.EstPremiereMain)
	assert.Equal(t, models.JSONMap{"ram": "16 GB"}, got.Specifications)
	assert.Equal(t, models.JSONList{"unrecognized equipment type"}, got.Warnings)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
}

func TestEquipmentGetByIDNotFound(t *testing.T) {
	repo := NewEquipmentRepository(setupDB(t))

	_, err := repo.GetByID(context.Background(), core.NewEquipmentID())
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
}

func TestEquipmentDuplicateIdentifier(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewEquipmentRepository(db)

	require.NoError(t, repo.Create(ctx, newEquipment("it", "SN-1", "", 0)))

	err := repo.Create(ctx, newEquipment("it", "SN-1", "", 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrDuplicateIdentifier)
	assert.Equal(t, apperrors.CodeDuplicate, apperrors.GetCode(err))

	// same identifier under another profile is a different asset
	require.NoError(t, repo.Create(ctx, newEquipment("telecom", "SN-1", "", 2)))

	// missing identifiers never collide
	require.NoError(t, repo.Create(ctx, newEquipment("it", "", "", 3)))
	require.NoError(t, repo.Create(ctx, newEquipment("it", "", "", 4)))
}

func TestEquipmentListAndCount(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	batch := saveBatch(t, NewImportRepository(db))
	repo := NewEquipmentRepository(db)

	for i, id := range []string{"SN-1", "SN-2", "SN-3"} {
		require.NoError(t, repo.Create(ctx, newEquipment("it", id, batch.ID, i)))
	}
	require.NoError(t, repo.Create(ctx, newEquipment("telecom", "356938035643809", "", 0)))

	all, err := repo.List(ctx, ports.EquipmentFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byImport := ports.EquipmentFilters{ImportID: &batch.ID}
	items, err := repo.List(ctx, byImport)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 0, items[0].RowIndex)
	assert.Equal(t, 2, items[2].RowIndex)

	n, err := repo.Count(ctx, ports.EquipmentFilters{Profile: "telecom"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	page, err := repo.List(ctx, ports.EquipmentFilters{Profile: "it", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	none, err := repo.List(ctx, ports.EquipmentFilters{Type: "router"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestImportSaveUpsertsAndReadsReport(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewImportRepository(db)

	batch := saveBatch(t, repo)
	batch.Report = models.ImportReport{
		Confidence: 0.85,
		Mapping: mapping.ColumnMapping{
			Threshold: 0.6,
			Matches:   []mapping.ColumnMatch{{Column: 0, Header: "Marque", Field: "marque", Confidence: 1, Strategy: mapping.StrategyExact}},
		},
		Rows: []models.RowOutcome{
			{RowIndex: 0, Status: models.RowImported},
			{RowIndex: 1, Status: models.RowDuplicate, Reason: "duplicate identifier"},
		},
	}
	batch.Confidence = 0.85
	batch.Tally()
	require.NoError(t, repo.Save(ctx, batch))

	got, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportPartial, got.Status)
	assert.Equal(t, 2, got.RowCount)
	assert.Equal(t, 1, got.Imported)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, "Feuil1", got.SheetName)
	require.Len(t, got.Report.Rows, 2)
	assert.Equal(t, models.RowDuplicate, got.Report.Rows[1].Status)
	assert.Equal(t, "marque", got.Report.Mapping.Matches[0].Field)

	list, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestImportGetByIDNotFound(t *testing.T) {
	repo := NewImportRepository(setupDB(t))

	_, err := repo.GetByID(context.Background(), core.NewImportID())
	assert.True(t, core.IsNotFoundError(err))
}
