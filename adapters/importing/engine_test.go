package importing

import (
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"assetdesk/adapters/importing/schema"
	"assetdesk/domain/core"
	"assetdesk/domain/importing/mapping"
	"assetdesk/domain/importing/sheet"
	"assetdesk/internal"
	"assetdesk/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var processingDate = time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)

func newEngine(profile string) *Engine {
	return NewEngine(schema.MustBuiltin(profile),
		WithClock(core.FixedClock(processingDate)),
		WithLogger(internal.NewNopLogger()))
}

func TestProcessExampleRow(t *testing.T) {
	e := newEngine("it")
	raw := &sheet.RawSheet{
		Header: sheet.Row("Marque", "Type", "Propriétaire", "Date d'acquisition"),
		Rows:   [][]sheet.Cell{sheet.Row("Dell", "laptop", "Jean Dupont", "2023-01-15")},
	}

	res, err := e.Process(raw)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, "Dell", rec.String("marque"))
	assert.Equal(t, "portable-computer", rec.String("type"))
	assert.Equal(t, "Jean Dupont", rec.String("proprietaire"))
	assert.Equal(t, "2023-01-15", rec.String("date_acquisition"))
	assert.Empty(t, rec.Warnings)
	assert.Empty(t, rec.Notes)
	assert.Equal(t, 1.0, rec.Confidence)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, "it", res.Profile)
}

func TestEveryFieldIsPresent(t *testing.T) {
	e := newEngine("it")
	m := e.Classify(sheet.Row("Marque"))
	rec := e.MapRecord(m, 0, sheet.Row("HP"))

	for _, f := range e.Schema().Fields() {
		if f.IsSpecification() {
			continue
		}
		assert.True(t, rec.Has(f.Name), f.Name)
	}
	assert.Equal(t, "other", rec.String("type"))
	assert.Equal(t, "Inconnu", rec.String("proprietaire"))
	assert.Equal(t, "Inconnu", rec.String("departement"))
	assert.Equal(t, "", rec.String("modele"))
	assert.Equal(t, "2024-03-18", rec.String("date_acquisition"))
	assert.Equal(t, true, rec.Values["est_premiere_main"])
	assert.NotNil(t, rec.Specifications)
	assert.Empty(t, rec.Notes, "defaults never produce notes")
	assert.Contains(t, rec.Defaulted, "departement")
	assert.NotContains(t, rec.Defaulted, "marque")

	fields := rec.Fields()
	assert.Contains(t, fields, mapping.SpecificationsKey)
}

func TestHeaderOnlySheetFailsPrecondition(t *testing.T) {
	e := newEngine("it")

	for _, raw := range []*sheet.RawSheet{
		{Header: sheet.Row("Marque", "Type")},
		{Header: sheet.Row("Marque", "Type"), Rows: [][]sheet.Cell{sheet.Row("", nil), sheet.Row("  ")}},
		{Rows: [][]sheet.Cell{sheet.Row("Dell")}},
		nil,
	} {
		res, err := e.Process(raw)
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, stderrors.Is(err, ErrNoDataRows))
		assert.True(t, core.IsPreconditionError(err))
		assert.Equal(t, errors.CodePreconditionFailed, errors.GetCode(err))
	}
}

func TestProcessSkipsBlankRows(t *testing.T) {
	e := newEngine("it")
	raw := &sheet.RawSheet{
		Header: sheet.Row("Marque", "Modèle"),
		Rows: [][]sheet.Cell{
			sheet.Row("Dell", "Latitude"),
			sheet.Row(nil, " "),
			sheet.Row("HP", "EliteBook"),
		},
	}

	res, err := e.Process(raw)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.SkippedBlankRows)
	assert.Equal(t, 0, res.Records[0].RowIndex)
	assert.Equal(t, 2, res.Records[1].RowIndex)
}

func TestCoverageWeightedConfidence(t *testing.T) {
	e := newEngine("it")
	m := e.Classify(sheet.Row("Marque", "Modèle", "Utilisateur", "Dpt"))
	require.Equal(t, 4, m.Len())

	full := e.MapRecord(m, 0, sheet.Row("Dell", "Latitude", "Ana", "RH"))
	sparse := e.MapRecord(m, 1, sheet.Row("Dell", nil, nil, nil))

	assert.Greater(t, full.Confidence, sparse.Confidence)
	assert.InDelta(t, 0.25, sparse.Confidence, 1e-9)
	for _, c := range []float64{full.Confidence, sparse.Confidence} {
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}

func TestSerialDateAndSplitThroughEngine(t *testing.T) {
	e := newEngine("it")
	raw := &sheet.RawSheet{
		Header: sheet.Row("Propriétaire", "Date d'achat", "Remarques"),
		Rows: [][]sheet.Cell{
			sheet.Row("Jean Dupont Mod-123", 44386, "i7, 16 Go, 512GB SSD, Windows 11"),
		},
	}

	res, err := e.Process(raw)
	require.NoError(t, err)
	rec := res.Records[0]

	assert.Equal(t, "Jean Dupont", rec.String("proprietaire"))
	assert.Equal(t, "Mod-123", rec.String("modele"))
	assert.Equal(t, "2021-07-09", rec.String("date_acquisition"))
	assert.Equal(t, "16 GB", rec.String("specifications.ram"))
	assert.Equal(t, "512 GB SSD", rec.String("specifications.disque_dur"))
	assert.Equal(t, "Windows 11", rec.String("specifications.os"))
	assert.Len(t, rec.Notes, 4)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestSplitCleansOwnerNextToExplicitModel(t *testing.T) {
	e := newEngine("it")
	m := e.Classify(sheet.Row("Propriétaire", "Modèle"))
	rec := e.MapRecord(m, 0, sheet.Row("Jean Dupont Mod-123", "Latitude 5420"))

	assert.Equal(t, "Jean Dupont", rec.String("proprietaire"))
	assert.Equal(t, "Latitude 5420", rec.String("modele"))
	dropped := false
	for _, n := range rec.Notes {
		if strings.Contains(n, `dropped "Mod-123"`) {
			dropped = true
		}
	}
	assert.True(t, dropped, rec.Notes)
}

func TestUnreadableDateIsFlagged(t *testing.T) {
	e := newEngine("it")
	m := e.Classify(sheet.Row("Marque", "Propriétaire", "Type", "Date d'acquisition"))
	rec := e.MapRecord(m, 0, sheet.Row("Dell", "Ana", "laptop", "un jour"))

	assert.Equal(t, "2024-03-18", rec.String("date_acquisition"))
	assert.True(t, rec.WasDefaulted("date_acquisition"))
	require.Len(t, rec.Warnings, 1)
	assert.Contains(t, rec.Warnings[0], `"un jour"`)
}

func TestBareYearDateIsFlagged(t *testing.T) {
	e := newEngine("it")
	m := e.Classify(sheet.Row("Marque", "Propriétaire", "Type", "Date d'acquisition"))
	rec := e.MapRecord(m, 0, sheet.Row("Dell", "Ana", "laptop", "2023"))

	assert.Equal(t, "1905-07-15", rec.String("date_acquisition"))
	assert.False(t, rec.WasDefaulted("date_acquisition"))
	require.Len(t, rec.Warnings, 1)
	assert.Contains(t, rec.Warnings[0], "implausible date")
}

func TestTelecomProfile(t *testing.T) {
	e := newEngine("telecom")
	raw := &sheet.RawSheet{
		Header: sheet.Row("Type", "Marque", "IMEI", "N° de ligne", "Opérateur", "Utilisateur"),
		Rows: [][]sheet.Cell{
			sheet.Row("Smartphone", "Samsung", "3520990017", "06 12 34 56 78", "Orange", "Léa Martin"),
		},
	}

	res, err := e.Process(raw)
	require.NoError(t, err)
	rec := res.Records[0]

	assert.Equal(t, "phone", rec.String("type"))
	assert.Equal(t, "Orange", rec.String("operateur"))
	assert.Equal(t, "06 12 34 56 78", rec.String("numero_ligne"))
	require.Len(t, rec.Warnings, 1)
	assert.Contains(t, rec.Warnings[0], "imei")
}

func TestMapRecordConcurrentUse(t *testing.T) {
	e := newEngine("it")
	m := e.Classify(sheet.Row("Marque", "Type", "Propriétaire", "Remarques"))

	const rows = 64
	out := make([]mapping.MappedRecord, rows)
	var wg sync.WaitGroup
	for i := 0; i < rows; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = e.MapRecord(m, i, sheet.Row("Lenovo", "laptop", "Owner Mod-1", "8GB RAM"))
		}(i)
	}
	wg.Wait()

	for i, rec := range out {
		assert.Equal(t, i, rec.RowIndex)
		assert.Equal(t, "Mod-1", rec.String("modele"))
		assert.Equal(t, "8 GB", rec.String("specifications.ram"))
	}
}
