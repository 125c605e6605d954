// Package importing maps arbitrary inventory spreadsheets onto the canonical
// equipment schema. The Engine classifies the header row once, then maps,
// normalizes, repairs and checks each data row independently.
package importing

import (
	"time"

	"assetdesk/adapters/importing/classifier"
	"assetdesk/adapters/importing/diagnostics"
	"assetdesk/adapters/importing/extractor"
	"assetdesk/adapters/importing/normalizer"
	"assetdesk/adapters/importing/schema"
	"assetdesk/domain/core"
	"assetdesk/domain/importing/mapping"
	"assetdesk/domain/importing/sheet"
	"assetdesk/internal"
	"assetdesk/internal/errors"
)

// ErrNoDataRows is returned, wrapped in a PRECONDITION_FAILED AppError, when
// a sheet lacks a header or any non-blank data row
var ErrNoDataRows = core.ErrNoDataRows

// Engine is stateless between calls; one instance can serve many sheets and
// MapRecord may be called concurrently with a shared mapping
type Engine struct {
	schema      *schema.Schema
	classifier  *classifier.Classifier
	normalizer  *normalizer.Normalizer
	extractor   *extractor.Extractor
	diagnostics *diagnostics.Diagnostics
	clock       core.Clock
	logger      *internal.Logger

	classifierOpts []classifier.Option
}

// Option configures an Engine
type Option func(*Engine)

// WithClock pins the processing date used for date fallbacks and diagnostics
func WithClock(clock core.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *internal.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClassifierOptions forwards options to the header classifier
func WithClassifierOptions(opts ...classifier.Option) Option {
	return func(e *Engine) {
		e.classifierOpts = append(e.classifierOpts, opts...)
	}
}

// NewEngine creates an engine for the given schema
func NewEngine(s *schema.Schema, opts ...Option) *Engine {
	e := &Engine{
		schema: s,
		clock:  core.SystemClock,
		logger: internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.classifier = classifier.New(s, e.classifierOpts...)
	e.normalizer = normalizer.New(s, e.clock)
	e.extractor = extractor.New(s)
	e.diagnostics = diagnostics.New(s, e.clock)
	return e
}

// Schema returns the schema the engine maps onto
func (e *Engine) Schema() *schema.Schema {
	return e.schema
}

// Validate checks the only hard precondition: a header row and at least one
// non-blank data row
func (e *Engine) Validate(raw *sheet.RawSheet) error {
	if raw == nil || sheet.IsBlankRow(raw.Header) {
		return errors.PreconditionFailed(ErrNoDataRows, "sheet has no header row")
	}
	if raw.DataRowCount() == 0 {
		return errors.PreconditionFailed(ErrNoDataRows, "sheet has a header row but no data rows")
	}
	return nil
}

// Classify builds the column mapping from the header row alone
func (e *Engine) Classify(header []sheet.Cell) mapping.ColumnMapping {
	return e.classifier.Classify(header)
}

// MapRecord turns one data row into a canonical record. Record confidence is
// coverage weighted: the confidences of the associations that found a
// non-empty cell, divided by the number of associations in the mapping.
func (e *Engine) MapRecord(m mapping.ColumnMapping, rowIndex int, row []sheet.Cell) mapping.MappedRecord {
	rec := mapping.NewMappedRecord(rowIndex)

	sum := 0.0
	for _, match := range m.Matches {
		cell := sheet.CellAt(row, match.Column)
		if cell.IsEmpty() {
			continue
		}
		field, ok := e.schema.Field(match.Field)
		if !ok {
			continue
		}
		res := e.normalizer.Normalize(cell, field)
		rec.Set(field.Name, res.Value)
		if res.Warning != "" {
			rec.AddWarning("%s", res.Warning)
		}
		if res.Fallback {
			rec.Defaulted = append(rec.Defaulted, field.Name)
		}
		sum += match.Confidence
	}

	e.extractor.Apply(&rec)
	e.fillDefaults(&rec)

	if m.Len() > 0 {
		rec.Confidence = min(1, max(0, sum/float64(m.Len())))
	}

	e.diagnostics.Run(&rec)
	return rec
}

// fillDefaults never adds notes: defaulting is expected, not a correction
func (e *Engine) fillDefaults(rec *mapping.MappedRecord) {
	for _, f := range e.schema.Fields() {
		if rec.Has(f.Name) {
			continue
		}
		switch f.Default.Kind {
		case schema.DefaultValue:
			rec.Set(f.Name, f.Default.Value)
		case schema.DefaultPlaceholder:
			rec.Set(f.Name, e.schema.Placeholder())
		case schema.DefaultToday:
			rec.Set(f.Name, e.clock().UTC().Format(core.DateLayout))
		case schema.DefaultEmpty:
			rec.Set(f.Name, "")
		default:
			continue
		}
		rec.Defaulted = append(rec.Defaulted, f.Name)
	}
}

// Process validates the sheet, classifies its header and maps every
// non-blank row in order
func (e *Engine) Process(raw *sheet.RawSheet) (*mapping.SheetResult, error) {
	if err := e.Validate(raw); err != nil {
		return nil, err
	}

	start := time.Now()
	m := e.Classify(raw.Header)
	result := &mapping.SheetResult{
		SheetName:   raw.Name,
		Profile:     e.schema.Profile(),
		Mapping:     m,
		Records:     make([]mapping.MappedRecord, 0, len(raw.Rows)),
		ProcessedAt: e.clock().UTC(),
	}

	for i, row := range raw.Rows {
		if sheet.IsBlankRow(row) {
			result.SkippedBlankRows++
			continue
		}
		result.Records = append(result.Records, e.MapRecord(m, i, row))
	}
	result.Confidence = e.SheetConfidence(m, result.Records)

	e.logger.Debug("mapped sheet %q: %d/%d columns, %d records, confidence %.2f in %s",
		raw.Name, m.Len(), len(raw.Header), len(result.Records), result.Confidence, time.Since(start))
	return result, nil
}

// SheetConfidence computes the sheet-level confidence of mapped records
func (e *Engine) SheetConfidence(m mapping.ColumnMapping, records []mapping.MappedRecord) float64 {
	return diagnostics.SheetConfidence(m, records, e.schema)
}
