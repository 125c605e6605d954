package excel

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"assetdesk/domain/core"
	"assetdesk/domain/importing/sheet"
	"assetdesk/internal"
	"assetdesk/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestReader(opts ...Option) *Reader {
	return NewReader(append([]Option{WithLogger(internal.NewNopLogger())}, opts...)...)
}

func workbook(t *testing.T, build func(f *excelize.File)) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadWorkbookKeepsSerialDates(t *testing.T) {
	buf := workbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Marque", "Date d'achat", "IMEI", "Actif"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Dell", time.Date(2021, 7, 9, 0, 0, 0, 0, time.UTC), "352099001761481", true}))
	})

	raw, err := newTestReader().Read(context.Background(), "parc.xlsx", buf)
	require.NoError(t, err)

	assert.Equal(t, "Sheet1", raw.Name)
	assert.Equal(t, []string{"Marque", "Date d'achat", "IMEI", "Actif"}, raw.HeaderStrings())
	require.Len(t, raw.Rows, 1)
	assert.Equal(t, sheet.Text("Dell"), raw.Rows[0][0])
	assert.Equal(t, sheet.Number(44386), raw.Rows[0][1])
	assert.Equal(t, "352099001761481", raw.Rows[0][2].String())
	assert.Contains(t, []sheet.Cell{sheet.Number(1), sheet.Bool(true)}, raw.Rows[0][3])
}

func TestReadWorkbookFirstNonEmptySheet(t *testing.T) {
	buf := workbook(t, func(f *excelize.File) {
		_, err := f.NewSheet("Inventaire")
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Inventaire", "A2", &[]interface{}{"Marque", "Modèle"}))
		require.NoError(t, f.SetSheetRow("Inventaire", "A3", &[]interface{}{"HP", "ProBook"}))
	})

	raw, err := newTestReader().Read(context.Background(), "parc.xlsx", buf)
	require.NoError(t, err)
	assert.Equal(t, "Inventaire", raw.Name)
	assert.Equal(t, []string{"Marque", "Modèle"}, raw.HeaderStrings())
	assert.Equal(t, 1, raw.DataRowCount())
}

func TestReadWorkbookNamedSheet(t *testing.T) {
	buf := workbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"ignored"}))
		_, err := f.NewSheet("Mobiles")
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Mobiles", "A1", &[]interface{}{"IMEI"}))
	})

	raw, err := newTestReader(WithSheet("Mobiles")).Read(context.Background(), "parc.xlsx", buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"IMEI"}, raw.HeaderStrings())
}

func TestReadSemicolonCSV(t *testing.T) {
	data := "\ufeffMarque;Modèle;N° série;Prix\nDell;Latitude;00123;1 299,90\nHP;\"Elite; Book\";12345;899.5\n\n"

	raw, err := newTestReader().Read(context.Background(), "export.csv", strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "export", raw.Name)
	assert.Equal(t, []string{"Marque", "Modèle", "N° série", "Prix"}, raw.HeaderStrings())
	require.Len(t, raw.Rows, 2)
	assert.Equal(t, sheet.Text("00123"), raw.Rows[0][2])
	assert.Equal(t, sheet.Text("1 299,90"), raw.Rows[0][3])
	assert.Equal(t, sheet.Text("Elite; Book"), raw.Rows[1][1])
	assert.Equal(t, sheet.Number(12345), raw.Rows[1][2])
	assert.Equal(t, sheet.Number(899.5), raw.Rows[1][3])
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', SniffDelimiter([]byte("a,b,c\n1;2;3")))
	assert.Equal(t, ';', SniffDelimiter([]byte("a;b;c")))
	assert.Equal(t, '\t', SniffDelimiter([]byte("a\tb\tc")))
	assert.Equal(t, ',', SniffDelimiter([]byte(`"a;b;c",d,e`)))
	assert.Equal(t, ',', SniffDelimiter([]byte("single")))
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		in   string
		want sheet.Cell
	}{
		{"", sheet.Empty()},
		{"   ", sheet.Empty()},
		{"TRUE", sheet.Bool(true)},
		{"faux", sheet.Bool(false)},
		{"42", sheet.Number(42)},
		{"-3.5", sheet.Number(-3.5)},
		{"0.25", sheet.Number(0.25)},
		{"0612345678", sheet.Text("0612345678")},
		{"+33612345678", sheet.Text("+33612345678")},
		{"12345678901234567", sheet.Text("12345678901234567")},
		{" Dell ", sheet.Text("Dell")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCell(tt.in), tt.in)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	r := newTestReader()
	assert.False(t, r.Supports("scan.pdf"))
	assert.True(t, r.Supports("PARC.XLSX"))

	_, err := r.Read(context.Background(), "scan.pdf", strings.NewReader("%PDF"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, core.ErrUnsupportedFormat))
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
}

func TestReadHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestReader().Read(ctx, "export.csv", strings.NewReader("a\n1"))
	assert.ErrorIs(t, err, context.Canceled)
}
