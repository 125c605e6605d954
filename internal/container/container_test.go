package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"assetdesk/adapters/importing/schema"
	"assetdesk/internal"
	"assetdesk/internal/config"
	"assetdesk/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite3", URL: ":memory:", MaxOpenConns: 1},
		Import:   config.ImportConfig{Profile: "telecom", Workers: 2, MaxUploadMB: 1},
	}
}

func TestNewBuildsEnginesWithConfiguredProfileFirst(t *testing.T) {
	c, err := New(testConfig(), internal.NewNopLogger())
	require.NoError(t, err)

	require.Len(t, c.Engines, len(schema.Profiles()))
	assert.Equal(t, "telecom", c.Engines[0].Schema().Profile())
	assert.Equal(t, "telecom", c.Schema.Profile())
	assert.Len(t, c.Readers, 2)
}

func TestNewRejectsUnknownProfile(t *testing.T) {
	cfg := testConfig()
	cfg.Import.Profile = "medical"

	_, err := New(cfg, internal.NewNopLogger())
	assert.Error(t, err)
}

func TestLoadSchemaOverridesThreshold(t *testing.T) {
	s, err := LoadSchema(config.ImportConfig{Profile: "it", AcceptThreshold: 0.75})
	require.NoError(t, err)
	assert.Equal(t, 0.75, s.Threshold())
}

func TestLoadSchemaFromFile(t *testing.T) {
	data, err := schema.MustBuiltin("it").Document().Marshal()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := LoadSchema(config.ImportConfig{Profile: "telecom", SchemaFile: path})
	require.NoError(t, err)
	assert.Equal(t, "it", s.Profile())
}

func TestInitWithDatabase(t *testing.T) {
	cfg := testConfig()
	c, err := New(cfg, internal.NewNopLogger())
	require.NoError(t, err)

	db, err := OpenDatabase(cfg.Database)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.InitWithDatabase(ctx, db))
	defer c.Shutdown(ctx)

	require.NotNil(t, c.ImportService)
	assert.Equal(t, "telecom", c.ImportService.DefaultProfile())

	n, err := c.EquipmentRepo.Count(ctx, ports.EquipmentFilters{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
