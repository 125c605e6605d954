package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"assetdesk/domain/core"
	"assetdesk/domain/importing/mapping"
)

// JSONMap is a map column stored as JSON text
type JSONMap map[string]interface{}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONMap source %T", src)
	}
	out := JSONMap{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// JSONList is a string slice column stored as JSON text
type JSONList []string

// Value implements driver.Valuer
func (l JSONList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *JSONList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = JSONList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONList source %T", src)
	}
	out := JSONList{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
	}
	*l = out
	return nil
}

// Equipment is one inventory item created from a mapped record
type Equipment struct {
	ID              core.EquipmentID `json:"id" db:"id"`
	ImportID        *core.ImportID   `json:"import_id,omitempty" db:"import_id"`
	Profile         string           `json:"profile" db:"profile"`
	RowIndex        int              `json:"row_index" db:"row_index"`
	Type            string           `json:"type" db:"type"`
	Marque          string           `json:"marque" db:"marque"`
	Modele          string           `json:"modele" db:"modele"`
	Identifier      sql.NullString   `json:"identifier" db:"identifier"`
	Proprietaire    string           `json:"proprietaire" db:"proprietaire"`
	Departement     string           `json:"departement" db:"departement"`
	DateAcquisition string           `json:"date_acquisition" db:"date_acquisition"`
	EstPremiereMain bool             `json:"est_premiere_main" db:"est_premiere_main"`
	Attributes      JSONMap          `json:"attributes" db:"attributes"`
	Specifications  JSONMap          `json:"specifications" db:"specifications"`
	Warnings        JSONList         `json:"warnings" db:"warnings"`
	Confidence      float64          `json:"confidence" db:"confidence"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// columns stored in dedicated columns; everything else goes to Attributes
var equipmentColumns = map[string]bool{
	"type":              true,
	"marque":            true,
	"modele":            true,
	"proprietaire":      true,
	"departement":       true,
	"date_acquisition":  true,
	"est_premiere_main": true,
}

// NewEquipmentFromRecord converts a mapped record. identifierField names the
// field holding the unique identifier of the profile (serial number, IMEI).
func NewEquipmentFromRecord(profile, identifierField string, importID core.ImportID, rec mapping.MappedRecord) *Equipment {
	eq := &Equipment{
		ID:              core.NewEquipmentID(),
		Profile:         profile,
		RowIndex:        rec.RowIndex,
		Type:            rec.String("type"),
		Marque:          rec.String("marque"),
		Modele:          rec.String("modele"),
		Proprietaire:    rec.String("proprietaire"),
		Departement:     rec.String("departement"),
		DateAcquisition: rec.String("date_acquisition"),
		Attributes:      JSONMap{},
		Specifications:  JSONMap{},
		Warnings:        JSONList(append([]string{}, rec.Warnings...)),
		Confidence:      rec.Confidence,
		CreatedAt:       time.Now().UTC(),
	}
	if importID != "" {
		eq.ImportID = &importID
	}
	if v, ok := rec.Values["est_premiere_main"].(bool); ok {
		eq.EstPremiereMain = v
	}
	if id := rec.String(identifierField); id != "" {
		eq.Identifier = sql.NullString{String: id, Valid: true}
	}
	for k, v := range rec.Values {
		if equipmentColumns[k] || k == identifierField {
			continue
		}
		eq.Attributes[k] = v
	}
	for k, v := range rec.Specifications {
		eq.Specifications[k] = v
	}
	return eq
}
