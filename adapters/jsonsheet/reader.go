// Package jsonsheet reads spreadsheets posted as JSON, either as a
// header/rows matrix or as an array of objects keyed by header.
package jsonsheet

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"assetdesk/domain/importing/sheet"
	"assetdesk/internal/errors"

	"github.com/tidwall/gjson"
)

// Reader decodes JSON sheets. JSON primitive types are kept as cell kinds.
type Reader struct{}

// NewReader creates a JSON sheet reader
func NewReader() *Reader {
	return &Reader{}
}

// Supports reports whether the file is a .json document
func (r *Reader) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}

// Read parses the document
func (r *Reader) Read(ctx context.Context, filename string, rd io.Reader) (*sheet.RawSheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read JSON sheet")
	}
	raw, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if raw.Name == "" {
		raw.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return raw, nil
}

// Parse accepts three shapes:
//
//	{"name": "...", "header": [...], "rows": [[...], ...]}
//	{"name": "...", "records": [{"Marque": "Dell", ...}, ...]}
//	[{"Marque": "Dell", ...}, ...]
func Parse(data []byte) (*sheet.RawSheet, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.InvalidInput("malformed JSON sheet")
	}
	doc := gjson.ParseBytes(data)

	switch {
	case doc.IsArray():
		return fromRecords("", doc)
	case doc.IsObject() && doc.Get("header").IsArray():
		return fromMatrix(doc)
	case doc.IsObject() && doc.Get("records").IsArray():
		return fromRecords(doc.Get("name").String(), doc.Get("records"))
	default:
		return nil, errors.InvalidInput(`JSON sheet needs a "header" array, a "records" array or a top-level array of objects`)
	}
}

func fromMatrix(doc gjson.Result) (*sheet.RawSheet, error) {
	raw := &sheet.RawSheet{Name: doc.Get("name").String()}
	for _, h := range doc.Get("header").Array() {
		raw.Header = append(raw.Header, sheet.Text(strings.TrimSpace(h.String())))
	}
	for i, row := range doc.Get("rows").Array() {
		if !row.IsArray() {
			return nil, errors.InvalidInput(fmt.Sprintf("rows[%d] is not an array", i))
		}
		values := row.Array()
		cells := make([]sheet.Cell, len(values))
		for j, v := range values {
			cells[j] = cell(v)
		}
		raw.Rows = append(raw.Rows, cells)
	}
	return raw, nil
}

func fromRecords(name string, records gjson.Result) (*sheet.RawSheet, error) {
	raw := &sheet.RawSheet{Name: name}
	columns := make(map[string]int)

	items := records.Array()
	for i, item := range items {
		if !item.IsObject() {
			return nil, errors.InvalidInput(fmt.Sprintf("record %d is not an object", i))
		}
		item.ForEach(func(key, _ gjson.Result) bool {
			k := key.String()
			if _, ok := columns[k]; !ok {
				columns[k] = len(raw.Header)
				raw.Header = append(raw.Header, sheet.Text(k))
			}
			return true
		})
	}

	for _, item := range items {
		cells := make([]sheet.Cell, len(raw.Header))
		for i := range cells {
			cells[i] = sheet.Empty()
		}
		item.ForEach(func(key, value gjson.Result) bool {
			cells[columns[key.String()]] = cell(value)
			return true
		})
		raw.Rows = append(raw.Rows, cells)
	}
	return raw, nil
}

func cell(v gjson.Result) sheet.Cell {
	switch v.Type {
	case gjson.Null:
		return sheet.Empty()
	case gjson.True:
		return sheet.Bool(true)
	case gjson.False:
		return sheet.Bool(false)
	case gjson.Number:
		return sheet.Number(v.Num)
	case gjson.String:
		return sheet.Text(v.Str)
	default:
		return sheet.Text(v.Raw)
	}
}
