package models

import (
	"testing"

	"assetdesk/domain/core"
	"assetdesk/domain/importing/mapping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() mapping.MappedRecord {
	rec := mapping.NewMappedRecord(3)
	rec.Set("type", "portable-computer")
	rec.Set("marque", "Dell")
	rec.Set("modele", "Latitude 5520")
	rec.Set("serial_number", "SN-12345")
	rec.Set("proprietaire", "Jean Dupont")
	rec.Set("departement", "Inconnu")
	rec.Set("date_acquisition", "2021-07-09")
	rec.Set("est_premiere_main", true)
	rec.Set("prix", "1200")
	rec.Set("specifications.ram", "16 GB")
	rec.AddWarning("departement is unknown (left as %q)", "Inconnu")
	rec.Confidence = 0.8
	return rec
}

func TestNewEquipmentFromRecord(t *testing.T) {
	importID := core.NewImportID()
	eq := NewEquipmentFromRecord("it", "serial_number", importID, sampleRecord())

	assert.NotEmpty(t, eq.ID)
	require.NotNil(t, eq.ImportID)
	assert.Equal(t, importID, *eq.ImportID)
	assert.Equal(t, "it", eq.Profile)
	assert.Equal(t, 3, eq.RowIndex)
	assert.Equal(t, "portable-computer", eq.Type)
	assert.Equal(t, "Dell", eq.Marque)
	assert.True(t, eq.EstPremiereMain)
	assert.True(t, eq.Identifier.Valid)
	assert.Equal(t, "SN-12345", eq.Identifier.String)
	assert.Equal(t, JSONMap{"prix": "1200"}, eq.Attributes)
	assert.Equal(t, JSONMap{"ram": "16 GB"}, eq.Specifications)
	assert.Len(t, eq.Warnings, 1)
	assert.Equal(t, 0.8, eq.Confidence)
}

func TestNewEquipmentWithoutIdentifierOrImport(t *testing.T) {
	rec := mapping.NewMappedRecord(0)
	rec.Set("type", "other")

	eq := NewEquipmentFromRecord("telecom", "imei", "", rec)
	assert.Nil(t, eq.ImportID)
	assert.False(t, eq.Identifier.Valid)
	assert.False(t, eq.EstPremiereMain)
}

func TestJSONColumnsScan(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"ram":"16 GB"}`)))
	assert.Equal(t, JSONMap{"ram": "16 GB"}, m)

	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m)

	var l JSONList
	require.NoError(t, l.Scan(`["a","b"]`))
	assert.Equal(t, JSONList{"a", "b"}, l)

	assert.Error(t, l.Scan(42))

	v, err := JSONList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestImportBatchTally(t *testing.T) {
	tests := []struct {
		name     string
		rows     []RowOutcome
		status   ImportStatus
		imported int
		skipped  int
		warned   int
	}{
		{
			name:   "empty",
			status: ImportCompleted,
		},
		{
			name: "all imported",
			rows: []RowOutcome{
				{Status: RowImported},
				{Status: RowImported, Warnings: []string{"unrecognized equipment type"}},
			},
			status: ImportCompleted, imported: 2, warned: 1,
		},
		{
			name: "duplicate skipped",
			rows: []RowOutcome{
				{Status: RowImported},
				{Status: RowDuplicate},
			},
			status: ImportPartial, imported: 1, skipped: 1,
		},
		{
			name:   "nothing imported",
			rows:   []RowOutcome{{Status: RowFailed}},
			status: ImportFailed, skipped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &ImportBatch{Report: ImportReport{Rows: tt.rows}}
			b.Tally()
			assert.Equal(t, tt.status, b.Status)
			assert.Equal(t, len(tt.rows), b.RowCount)
			assert.Equal(t, tt.imported, b.Imported)
			assert.Equal(t, tt.skipped, b.Skipped)
			assert.Equal(t, tt.warned, b.Warned)
		})
	}
}

func TestImportReportColumn(t *testing.T) {
	report := ImportReport{
		Confidence: 0.75,
		Mapping: mapping.ColumnMapping{
			Threshold: 0.6,
			Matches:   []mapping.ColumnMatch{{Column: 0, Header: "Marque", Field: "marque", Confidence: 1, Strategy: mapping.StrategyExact}},
		},
		Rows: []RowOutcome{{RowIndex: 0, Status: RowImported, Confidence: 0.75}},
	}

	v, err := report.Value()
	require.NoError(t, err)

	var back ImportReport
	require.NoError(t, back.Scan(v))
	assert.Equal(t, report.Mapping.Matches, back.Mapping.Matches)
	assert.Equal(t, report.Rows, back.Rows)
}
