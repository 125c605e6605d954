package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"assetdesk/domain/core"
	"assetdesk/domain/importing/sheet"
	"assetdesk/internal"
	"assetdesk/internal/errors"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\ufeff"

// Reader reads .xlsx workbooks and delimited text files into raw sheets
type Reader struct {
	sheetName string
	logger    *internal.Logger
}

// Option configures a Reader
type Option func(*Reader)

// WithSheet reads the named worksheet instead of the first non-empty one
func WithSheet(name string) Option {
	return func(r *Reader) {
		r.sheetName = name
	}
}

// WithLogger sets the logger
func WithLogger(logger *internal.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReader creates a reader
func NewReader(opts ...Option) *Reader {
	r := &Reader{logger: internal.DefaultLogger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func fileType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xltx":
		return "xlsx"
	case ".csv", ".tsv", ".txt":
		return "csv"
	default:
		return ""
	}
}

// Supports reports whether the file extension is handled
func (r *Reader) Supports(filename string) bool {
	return fileType(filename) != ""
}

// Read parses the file. The first non-blank row is the header.
func (r *Reader) Read(ctx context.Context, filename string, rd io.Reader) (*sheet.RawSheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		rows [][]string
		name string
		err  error
	)
	switch fileType(filename) {
	case "xlsx":
		rows, name, err = r.readWorkbook(rd)
	case "csv":
		rows, err = readDelimited(rd)
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	default:
		return nil, errors.UnsupportedFormat(core.ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	raw := toRawSheet(name, rows)
	r.logger.Debug("[excel] read %s in %s (%d columns, %d rows)", filename, time.Since(start), len(raw.Header), len(raw.Rows))
	return raw, nil
}

func (r *Reader) readWorkbook(rd io.Reader) ([][]string, string, error) {
	f, err := excelize.OpenReader(rd)
	if err != nil {
		return nil, "", errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "failed to open workbook"))
	}
	defer f.Close()

	// Raw values keep dates as serials instead of locale-formatted text
	opts := excelize.Options{RawCellValue: true}

	if r.sheetName != "" {
		rows, err := f.GetRows(r.sheetName, opts)
		if err != nil {
			return nil, "", errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "failed to read worksheet %q", r.sheetName))
		}
		return rows, r.sheetName, nil
	}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, opts)
		if err != nil {
			return nil, "", errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "failed to read worksheet %q", name))
		}
		if len(rows) > 0 {
			return rows, name, nil
		}
	}
	return nil, "", nil
}

func readDelimited(rd io.Reader) ([][]string, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = SniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "failed to parse delimited file"))
	}
	return rows, nil
}

// SniffDelimiter picks the most frequent of comma, semicolon and tab on the
// first line, ignoring quoted sections. Comma wins ties.
func SniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	counts := map[rune]int{}
	quoted := false
	for _, c := range string(line) {
		switch {
		case c == '"':
			quoted = !quoted
		case !quoted && (c == ',' || c == ';' || c == '\t'):
			counts[c]++
		}
	}
	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func toRawSheet(name string, rows [][]string) *sheet.RawSheet {
	raw := &sheet.RawSheet{Name: name}
	headerSeen := false
	for _, row := range rows {
		cells := make([]sheet.Cell, len(row))
		for i, v := range row {
			cells[i] = ParseCell(v)
		}
		if !headerSeen {
			if sheet.IsBlankRow(cells) {
				continue
			}
			// header cells stay text even when they look numeric
			for i, v := range row {
				cells[i] = sheet.Text(strings.TrimSpace(v))
			}
			raw.Header = cells
			headerSeen = true
			continue
		}
		raw.Rows = append(raw.Rows, cells)
	}
	return raw
}

// ParseCell types a textual cell: numbers become number cells unless a
// leading zero, a plus sign or their length shows they are codes. TRUE and
// FALSE become booleans and blanks become empty cells.
func ParseCell(v string) sheet.Cell {
	s := strings.TrimSpace(v)
	if s == "" {
		return sheet.Empty()
	}
	switch strings.ToUpper(s) {
	case "TRUE", "VRAI":
		return sheet.Bool(true)
	case "FALSE", "FAUX":
		return sheet.Bool(false)
	}
	if looksLikeCode(s) {
		return sheet.Text(s)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return sheet.Number(f)
	}
	return sheet.Text(s)
}

func looksLikeCode(s string) bool {
	if strings.HasPrefix(s, "+") {
		return true
	}
	digits := strings.TrimPrefix(s, "-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return true
	}
	if i := strings.IndexAny(digits, ".eE"); i >= 0 {
		digits = digits[:i]
	}
	return len(digits) > 15
}
