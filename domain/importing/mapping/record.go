package mapping

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SpecificationsKey is the nested sub-map holding specification fields
const SpecificationsKey = "specifications"

const specPrefix = SpecificationsKey + "."

// IsSpecification reports whether a dotted field path lives in the
// specifications sub-map, and returns its slot name
func IsSpecification(field string) (string, bool) {
	if strings.HasPrefix(field, specPrefix) {
		return strings.TrimPrefix(field, specPrefix), true
	}
	return "", false
}

// MappedRecord is one normalized output row
type MappedRecord struct {
	RowIndex       int                    `json:"row_index"`
	Values         map[string]interface{} `json:"-"`
	Specifications map[string]string      `json:"-"`
	Notes          []string               `json:"notes"`
	Warnings       []string               `json:"warnings"`
	Defaulted      []string               `json:"defaulted,omitempty"`
	Confidence     float64                `json:"confidence"`
}

// NewMappedRecord creates an empty record for the given data row index
func NewMappedRecord(rowIndex int) MappedRecord {
	return MappedRecord{
		RowIndex:       rowIndex,
		Values:         make(map[string]interface{}),
		Specifications: make(map[string]string),
		Notes:          []string{},
		Warnings:       []string{},
	}
}

// Has reports whether the field currently holds a value
func (r *MappedRecord) Has(field string) bool {
	_, ok := r.Get(field)
	return ok
}

// Get returns the value of a flat or dotted specification field
func (r *MappedRecord) Get(field string) (interface{}, bool) {
	if slot, ok := IsSpecification(field); ok {
		v, found := r.Specifications[slot]
		return v, found
	}
	v, ok := r.Values[field]
	return v, ok
}

// String returns the field value rendered as text, or "" when unset
func (r *MappedRecord) String(field string) string {
	v, ok := r.Get(field)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Set stores a value, routing dotted specification paths into the sub-map
func (r *MappedRecord) Set(field string, value interface{}) {
	if slot, ok := IsSpecification(field); ok {
		r.Specifications[slot] = fmt.Sprintf("%v", value)
		return
	}
	r.Values[field] = value
}

// Delete clears a flat or dotted specification field
func (r *MappedRecord) Delete(field string) {
	if slot, ok := IsSpecification(field); ok {
		delete(r.Specifications, slot)
		return
	}
	delete(r.Values, field)
}

// AddNote appends a transformation note
func (r *MappedRecord) AddNote(format string, args ...interface{}) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// AddWarning appends a warning
func (r *MappedRecord) AddWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// WasDefaulted reports whether the field was filled from its default
func (r *MappedRecord) WasDefaulted(field string) bool {
	for _, f := range r.Defaulted {
		if f == field {
			return true
		}
	}
	return false
}

// Fields returns the nested canonical structure: flat fields plus the
// specifications sub-map
func (r *MappedRecord) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Values)+1)
	for k, v := range r.Values {
		out[k] = v
	}
	specs := make(map[string]string, len(r.Specifications))
	for k, v := range r.Specifications {
		specs[k] = v
	}
	out[SpecificationsKey] = specs
	return out
}

type recordJSON struct {
	RowIndex   int                    `json:"row_index"`
	Fields     map[string]interface{} `json:"fields"`
	Notes      []string               `json:"notes"`
	Warnings   []string               `json:"warnings"`
	Defaulted  []string               `json:"defaulted,omitempty"`
	Confidence float64                `json:"confidence"`
}

// MarshalJSON encodes the record with the specifications nested under fields
func (r MappedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		RowIndex:   r.RowIndex,
		Fields:     r.Fields(),
		Notes:      r.Notes,
		Warnings:   r.Warnings,
		Defaulted:  r.Defaulted,
		Confidence: r.Confidence,
	})
}

// UnmarshalJSON decodes the nested representation produced by MarshalJSON
func (r *MappedRecord) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rec := NewMappedRecord(raw.RowIndex)
	for k, v := range raw.Fields {
		if k != SpecificationsKey {
			rec.Values[k] = v
			continue
		}
		specs, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		for slot, sv := range specs {
			rec.Specifications[slot] = fmt.Sprintf("%v", sv)
		}
	}
	if raw.Notes != nil {
		rec.Notes = raw.Notes
	}
	if raw.Warnings != nil {
		rec.Warnings = raw.Warnings
	}
	rec.Defaulted = raw.Defaulted
	rec.Confidence = raw.Confidence
	*r = rec
	return nil
}
