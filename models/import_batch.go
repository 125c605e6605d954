package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"assetdesk/domain/core"
	"assetdesk/domain/importing/mapping"
	"assetdesk/internal/profiling"
)

// ImportStatus is the overall outcome of an import batch
type ImportStatus string

const (
	ImportRunning   ImportStatus = "running"
	ImportCompleted ImportStatus = "completed"
	ImportPartial   ImportStatus = "partial"
	ImportFailed    ImportStatus = "failed"
)

// RowStatus is the outcome of one data row
type RowStatus string

const (
	RowImported  RowStatus = "imported"
	RowDuplicate RowStatus = "duplicate"
	RowFailed    RowStatus = "failed"
	RowPreviewed RowStatus = "previewed"
)

// RowOutcome records what happened to one mapped record
type RowOutcome struct {
	RowIndex    int              `json:"row_index"`
	Status      RowStatus        `json:"status"`
	EquipmentID core.EquipmentID `json:"equipment_id,omitempty"`
	Identifier  string           `json:"identifier,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Confidence  float64          `json:"confidence"`
	Notes       []string         `json:"notes,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// ImportReport is the detailed, JSON-encoded body of an import batch
type ImportReport struct {
	Mapping          mapping.ColumnMapping       `json:"mapping"`
	Confidence       float64                     `json:"confidence"`
	Profile          profiling.ConfidenceProfile `json:"confidence_profile"`
	SkippedBlankRows int                         `json:"skipped_blank_rows"`
	Rows             []RowOutcome                `json:"rows"`
}

// Value implements driver.Valuer
func (r ImportReport) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (r *ImportReport) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = ImportReport{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported ImportReport source %T", src)
	}
	var out ImportReport
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
	}
	*r = out
	return nil
}

// ImportBatch is one uploaded sheet and its outcome
type ImportBatch struct {
	ID         core.ImportID `json:"id" db:"id"`
	FileName   string        `json:"file_name" db:"file_name"`
	SheetName  string        `json:"sheet_name" db:"sheet_name"`
	Profile    string        `json:"profile" db:"profile"`
	Status     ImportStatus  `json:"status" db:"status"`
	RowCount   int           `json:"row_count" db:"row_count"`
	Imported   int           `json:"imported" db:"imported"`
	Skipped    int           `json:"skipped" db:"skipped"`
	Warned     int           `json:"warned" db:"warned"`
	Confidence float64       `json:"confidence" db:"confidence"`
	Report     ImportReport  `json:"report" db:"report"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// Tally recomputes the counters and status from the row outcomes
func (b *ImportBatch) Tally() {
	b.RowCount = len(b.Report.Rows)
	b.Imported, b.Skipped, b.Warned = 0, 0, 0
	for _, row := range b.Report.Rows {
		switch row.Status {
		case RowImported, RowPreviewed:
			b.Imported++
		default:
			b.Skipped++
		}
		if len(row.Warnings) > 0 {
			b.Warned++
		}
	}
	switch {
	case b.RowCount > 0 && b.Imported == 0:
		b.Status = ImportFailed
	case b.Skipped > 0:
		b.Status = ImportPartial
	default:
		b.Status = ImportCompleted
	}
}
