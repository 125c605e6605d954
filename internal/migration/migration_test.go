package migration

import (
	"context"
	"testing"

	"assetdesk/internal/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunCreatesTables(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, NewRunner().Run(ctx, db))

	var tables []string
	require.NoError(t, db.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`))
	assert.Contains(t, tables, "equipment")
	assert.Contains(t, tables, "imports")
}

func TestRunIsIdempotent(t *testing.T) {
	db := openSQLite(t)
	r := NewRunner()

	require.NoError(t, r.Run(context.Background(), db))
	require.NoError(t, r.Run(context.Background(), db))
}

func TestEquipmentIdentifierUniquePerProfile(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, NewRunner().Run(ctx, db))

	insert := `INSERT INTO equipment (id, profile, type, identifier, attributes, specifications, warnings)
		VALUES (?, ?, 'other', ?, '{}', '{}', '[]')`

	_, err := db.ExecContext(ctx, insert, "a", "it", "SN-1")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, "b", "telecom", "SN-1")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, "c", "it", nil)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, "d", "it", nil)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "e", "it", "SN-1")
	assert.Error(t, err)
}

func TestRunRejectsUnknownDriver(t *testing.T) {
	db := sqlx.NewDb(openSQLite(t).DB, "mysql")

	err := NewRunner().Run(context.Background(), db)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
