package mapping

import (
	"time"

	"assetdesk/domain/core"
)

// Strategy names the header-matching phase that produced a column match
type Strategy string

const (
	StrategyExact     Strategy = "exact"
	StrategyTruncated Strategy = "truncated"
	StrategyContent   Strategy = "content"
	StrategySynonym   Strategy = "synonym"
)

// ColumnMatch associates one spreadsheet column with one canonical field
type ColumnMatch struct {
	Column     int      `json:"column"`
	Header     string   `json:"header"`
	Field      string   `json:"field"`
	Confidence float64  `json:"confidence"`
	Strategy   Strategy `json:"strategy"`
}

// UnmatchedColumn records a column whose best candidate stayed under the threshold
type UnmatchedColumn struct {
	Column    int     `json:"column"`
	Header    string  `json:"header"`
	BestField string  `json:"best_field,omitempty"`
	BestScore float64 `json:"best_score"`
}

// ColumnConflict records a column dropped because an earlier column already
// claimed the same field
type ColumnConflict struct {
	ColumnMatch
	WinnerColumn int `json:"winner_column"`
}

// ColumnMapping is the per-sheet association from column index to canonical
// field. It depends on the header row only.
type ColumnMapping struct {
	Matches     []ColumnMatch     `json:"matches"`
	Unmatched   []UnmatchedColumn `json:"unmatched,omitempty"`
	Conflicts   []ColumnConflict  `json:"conflicts,omitempty"`
	Threshold   float64           `json:"threshold"`
	Fingerprint core.Hash         `json:"fingerprint"`
}

// Len returns the number of accepted column associations
func (m ColumnMapping) Len() int {
	return len(m.Matches)
}

// ForField returns the match feeding the given field, if any
func (m ColumnMapping) ForField(field string) (ColumnMatch, bool) {
	for _, match := range m.Matches {
		if match.Field == field {
			return match, true
		}
	}
	return ColumnMatch{}, false
}

// ForColumn returns the match for the given column index, if any
func (m ColumnMapping) ForColumn(column int) (ColumnMatch, bool) {
	for _, match := range m.Matches {
		if match.Column == column {
			return match, true
		}
	}
	return ColumnMatch{}, false
}

// Confidences lists the per-association confidences in column order
func (m ColumnMapping) Confidences() []float64 {
	out := make([]float64, len(m.Matches))
	for i, match := range m.Matches {
		out[i] = match.Confidence
	}
	return out
}

// SheetResult is the full output of processing one sheet
type SheetResult struct {
	SheetName        string         `json:"sheet_name,omitempty"`
	Profile          string         `json:"profile"`
	Mapping          ColumnMapping  `json:"mapping"`
	Records          []MappedRecord `json:"records"`
	Confidence       float64        `json:"confidence"`
	SkippedBlankRows int            `json:"skipped_blank_rows"`
	ProcessedAt      time.Time      `json:"processed_at"`
}

// WarnedCount counts the records carrying at least one warning
func (r *SheetResult) WarnedCount() int {
	n := 0
	for i := range r.Records {
		if len(r.Records[i].Warnings) > 0 {
			n++
		}
	}
	return n
}
