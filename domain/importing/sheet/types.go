package sheet

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CellKind defines the primitive kind carried by a cell
type CellKind string

const (
	CellEmpty  CellKind = "empty"
	CellText   CellKind = "text"
	CellNumber CellKind = "number"
	CellBool   CellKind = "bool"
)

// Cell is one primitive spreadsheet value: text, number, boolean or empty
type Cell struct {
	Kind   CellKind `json:"kind"`
	Text   string   `json:"text,omitempty"`
	Number float64  `json:"number,omitempty"`
	Bool   bool     `json:"bool,omitempty"`
}

// RawSheet is an already-parsed two-dimensional sheet: one header row and
// the data rows beneath it
type RawSheet struct {
	Name   string   `json:"name,omitempty"`
	Header []Cell   `json:"header"`
	Rows   [][]Cell `json:"rows"`
}

// Empty returns the empty cell
func Empty() Cell { return Cell{Kind: CellEmpty} }

// Text creates a text cell
func Text(s string) Cell { return Cell{Kind: CellText, Text: s} }

// Number creates a numeric cell; NaN and infinities become empty cells
func Number(n float64) Cell {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Empty()
	}
	return Cell{Kind: CellNumber, Number: n}
}

// Bool creates a boolean cell
func Bool(b bool) Cell { return Cell{Kind: CellBool, Bool: b} }

// FromAny converts a loosely typed value (as produced by decoders) into a Cell
func FromAny(v interface{}) Cell {
	switch t := v.(type) {
	case nil:
		return Empty()
	case Cell:
		return t
	case string:
		return Text(t)
	case *string:
		if t == nil {
			return Empty()
		}
		return Text(*t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int8:
		return Number(float64(t))
	case int16:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint8:
		return Number(float64(t))
	case uint16:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case time.Time:
		return Text(t.Format(time.RFC3339))
	case fmt.Stringer:
		return Text(t.String())
	default:
		return Text(fmt.Sprintf("%v", t))
	}
}

// Row builds a row of cells from loosely typed values
func Row(values ...interface{}) []Cell {
	row := make([]Cell, len(values))
	for i, v := range values {
		row[i] = FromAny(v)
	}
	return row
}

// IsEmpty reports whether the cell carries no usable value. Whitespace-only
// text counts as empty.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	case CellNumber, CellBool:
		return false
	default:
		return true
	}
}

// String renders the cell as text. Numbers are printed without exponent or
// trailing zeros so integral serials and codes survive round trips.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellBool:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

// Interface returns the cell as a plain Go value (string, float64, bool or nil)
func (c Cell) Interface() interface{} {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return c.Number
	case CellBool:
		return c.Bool
	default:
		return nil
	}
}

// MarshalJSON encodes the cell as its bare primitive value
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellText:
		return json.Marshal(c.Text)
	case CellNumber:
		return []byte(strconv.FormatFloat(c.Number, 'f', -1, 64)), nil
	case CellBool:
		return []byte(strconv.FormatBool(c.Bool)), nil
	default:
		return []byte("null"), nil
	}
}

// CellAt returns the cell at index i of row, or an empty cell when the row is short
func CellAt(row []Cell, i int) Cell {
	if i < 0 || i >= len(row) {
		return Empty()
	}
	return row[i]
}

// IsBlankRow reports whether every cell of the row is empty
func IsBlankRow(row []Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// HeaderStrings renders the header row as trimmed strings
func (s *RawSheet) HeaderStrings() []string {
	out := make([]string, len(s.Header))
	for i, c := range s.Header {
		out[i] = strings.TrimSpace(c.String())
	}
	return out
}

// DataRowCount counts the rows that carry at least one non-empty cell
func (s *RawSheet) DataRowCount() int {
	n := 0
	for _, row := range s.Rows {
		if !IsBlankRow(row) {
			n++
		}
	}
	return n
}
