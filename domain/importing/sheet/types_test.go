package sheet

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want Cell
	}{
		{"nil", nil, Empty()},
		{"string", "Dell", Text("Dell")},
		{"int", 42, Number(42)},
		{"float", 44386.0, Number(44386)},
		{"bool", true, Bool(true)},
		{"nan", math.NaN(), Empty()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromAny(tt.in))
		})
	}
}

func TestCellIsEmpty(t *testing.T) {
	assert.True(t, Empty().IsEmpty())
	assert.True(t, Text("   ").IsEmpty())
	assert.False(t, Text("x").IsEmpty())
	assert.False(t, Number(0).IsEmpty())
	assert.False(t, Bool(false).IsEmpty())
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "44386", Number(44386).String())
	assert.Equal(t, "16.5", Number(16.5).String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "", Empty().String())
}

func TestCellMarshalJSON(t *testing.T) {
	row := Row("Dell", 3, false, nil)
	data, err := json.Marshal(row)
	assert.NoError(t, err)
	assert.JSONEq(t, `["Dell", 3, false, null]`, string(data))
}

func TestDataRowCountIgnoresBlankRows(t *testing.T) {
	s := RawSheet{
		Header: Row("Marque"),
		Rows: [][]Cell{
			Row("Dell"),
			Row("  ", nil),
			{},
			Row("HP"),
		},
	}
	assert.Equal(t, 2, s.DataRowCount())
	assert.Equal(t, Empty(), CellAt(s.Rows[0], 5))
}
