package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"assetdesk/adapters/importing"
	"assetdesk/domain/core"
	"assetdesk/domain/importing/mapping"
	"assetdesk/domain/importing/sheet"
	"assetdesk/internal"
	"assetdesk/internal/errors"
	"assetdesk/internal/profiling"
	"assetdesk/models"
	"assetdesk/ports"

	"golang.org/x/sync/errgroup"
)

// lowConfidence marks records worth a manual look in the confidence profile
const lowConfidence = 0.5

// ImportService orchestrates spreadsheet imports: read, map, persist, report
type ImportService struct {
	engines        map[string]*importing.Engine
	defaultProfile string
	readers        []ports.SheetReader
	equipment      ports.EquipmentRepository
	imports        ports.ImportRepository
	analyzer       *profiling.ConfidenceAnalyzer
	workers        int
	clock          core.Clock
	logger         *internal.Logger
}

// ImportRequest describes one uploaded sheet
type ImportRequest struct {
	FileName string
	Content  io.Reader
	Profile  string // optional, defaults to the service default profile
}

// ServiceOption configures an ImportService
type ServiceOption func(*ImportService)

// WithWorkers bounds the number of rows mapped concurrently
func WithWorkers(n int) ServiceOption {
	return func(s *ImportService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithServiceClock pins the clock used for batch timestamps
func WithServiceClock(clock core.Clock) ServiceOption {
	return func(s *ImportService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithServiceLogger sets the logger
func WithServiceLogger(logger *internal.Logger) ServiceOption {
	return func(s *ImportService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewImportService creates an import service. The first engine's profile is
// the default profile.
func NewImportService(engines []*importing.Engine, readers []ports.SheetReader, equipment ports.EquipmentRepository, imports ports.ImportRepository, opts ...ServiceOption) *ImportService {
	s := &ImportService{
		engines:   make(map[string]*importing.Engine, len(engines)),
		readers:   readers,
		equipment: equipment,
		imports:   imports,
		analyzer:  profiling.NewConfidenceAnalyzer(profiling.DefaultBuckets, lowConfidence),
		workers:   runtime.GOMAXPROCS(0),
		clock:     core.SystemClock,
		logger:    internal.DefaultLogger,
	}
	for i, e := range engines {
		if i == 0 {
			s.defaultProfile = e.Schema().Profile()
		}
		s.engines[e.Schema().Profile()] = e
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profiles lists the profiles the service can map onto, sorted
func (s *ImportService) Profiles() []string {
	out := make([]string, 0, len(s.engines))
	for p := range s.engines {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DefaultProfile returns the profile used when a request names none
func (s *ImportService) DefaultProfile() string {
	return s.defaultProfile
}

// Engine returns the engine of a profile; "" selects the default profile
func (s *ImportService) Engine(profile string) (*importing.Engine, error) {
	if profile == "" {
		profile = s.defaultProfile
	}
	e, ok := s.engines[profile]
	if !ok {
		return nil, errors.InvalidInput(fmt.Sprintf("unknown schema profile %q", profile))
	}
	return e, nil
}

// ReadSheet decodes an upload with the first reader supporting its extension
func (s *ImportService) ReadSheet(ctx context.Context, fileName string, content io.Reader) (*sheet.RawSheet, error) {
	for _, r := range s.readers {
		if r.Supports(fileName) {
			return r.Read(ctx, fileName, content)
		}
	}
	return nil, errors.UnsupportedFormat(core.ErrUnsupportedFormat, filepath.Ext(fileName))
}

// MapSheet validates and maps a sheet. Rows are mapped concurrently against
// the shared column mapping; records come back in row order.
func (s *ImportService) MapSheet(ctx context.Context, profile string, raw *sheet.RawSheet) (*mapping.SheetResult, error) {
	engine, err := s.Engine(profile)
	if err != nil {
		return nil, err
	}
	if err := engine.Validate(raw); err != nil {
		return nil, err
	}

	m := engine.Classify(raw.Header)
	slots := make([]*mapping.MappedRecord, len(raw.Rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, row := range raw.Rows {
		if sheet.IsBlankRow(row) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec := engine.MapRecord(m, i, row)
			slots[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &mapping.SheetResult{
		SheetName:   raw.Name,
		Profile:     engine.Schema().Profile(),
		Mapping:     m,
		Records:     make([]mapping.MappedRecord, 0, len(raw.Rows)),
		ProcessedAt: s.clock().UTC(),
	}
	for _, rec := range slots {
		if rec == nil {
			result.SkippedBlankRows++
			continue
		}
		result.Records = append(result.Records, *rec)
	}
	result.Confidence = engine.SheetConfidence(m, result.Records)
	return result, nil
}

// Preview reads and maps a sheet without persisting anything
func (s *ImportService) Preview(ctx context.Context, req ImportRequest) (*mapping.SheetResult, error) {
	raw, err := s.ReadSheet(ctx, req.FileName, req.Content)
	if err != nil {
		return nil, err
	}
	return s.MapSheet(ctx, req.Profile, raw)
}

// Import reads, maps and persists a sheet. A record rejected by the
// repository is reported as skipped and the import continues.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*models.ImportBatch, error) {
	start := time.Now()

	raw, err := s.ReadSheet(ctx, req.FileName, req.Content)
	if err != nil {
		return nil, err
	}
	result, err := s.MapSheet(ctx, req.Profile, raw)
	if err != nil {
		return nil, err
	}
	engine, _ := s.Engine(result.Profile)
	identifierField := engine.Schema().IdentifierField()

	batch := &models.ImportBatch{
		ID:         core.NewImportID(),
		FileName:   filepath.Base(req.FileName),
		SheetName:  result.SheetName,
		Profile:    result.Profile,
		Status:     models.ImportRunning,
		Confidence: result.Confidence,
		CreatedAt:  s.clock().UTC(),
	}
	if err := s.imports.Save(ctx, batch); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create import batch"))
	}

	outcomes := make([]models.RowOutcome, 0, len(result.Records))
	confidences := make([]float64, 0, len(result.Records))
	for _, rec := range result.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		confidences = append(confidences, rec.Confidence)

		eq := models.NewEquipmentFromRecord(result.Profile, identifierField, batch.ID, rec)
		outcome := models.RowOutcome{
			RowIndex:   rec.RowIndex,
			Identifier: eq.Identifier.String,
			Confidence: rec.Confidence,
			Notes:      rec.Notes,
			Warnings:   rec.Warnings,
		}

		err := s.equipment.Create(ctx, eq)
		switch {
		case err == nil:
			outcome.Status = models.RowImported
			outcome.EquipmentID = eq.ID
		case core.IsDuplicateError(err):
			outcome.Status = models.RowDuplicate
			outcome.Reason = err.Error()
			s.logger.Warn("import %s: row %d skipped: %v", batch.ID, rec.RowIndex, err)
		default:
			outcome.Status = models.RowFailed
			outcome.Reason = err.Error()
			s.logger.Error("import %s: row %d failed: %v", batch.ID, rec.RowIndex, err)
		}
		outcomes = append(outcomes, outcome)
	}

	batch.Report = models.ImportReport{
		Mapping:          result.Mapping,
		Confidence:       result.Confidence,
		Profile:          s.analyzer.Analyze(confidences),
		SkippedBlankRows: result.SkippedBlankRows,
		Rows:             outcomes,
	}
	batch.Tally()

	if err := s.imports.Save(ctx, batch); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to save import report"))
	}

	s.logger.Info("import %s (%s, profile %s): %d imported, %d skipped, %d warned, confidence %.2f in %s",
		batch.ID, batch.FileName, batch.Profile, batch.Imported, batch.Skipped, batch.Warned, batch.Confidence, time.Since(start))
	return batch, nil
}

// GetImport returns a stored import batch
func (s *ImportService) GetImport(ctx context.Context, id core.ImportID) (*models.ImportBatch, error) {
	batch, err := s.imports.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFoundError(err) {
			return nil, errors.WithCode(errors.CodeNotFound, err)
		}
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	return batch, nil
}

// GetEquipment returns one stored equipment record
func (s *ImportService) GetEquipment(ctx context.Context, id core.EquipmentID) (*models.Equipment, error) {
	eq, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFoundError(err) {
			return nil, errors.WithCode(errors.CodeNotFound, err)
		}
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	return eq, nil
}

// ListImports returns the most recent batches
func (s *ImportService) ListImports(ctx context.Context, limit, offset int) ([]*models.ImportBatch, error) {
	return s.imports.List(ctx, limit, offset)
}

// ListEquipment returns one page of equipment and the total matching count
func (s *ImportService) ListEquipment(ctx context.Context, filters ports.EquipmentFilters) ([]*models.Equipment, int, error) {
	items, err := s.equipment.List(ctx, filters)
	if err != nil {
		return nil, 0, errors.WithCode(errors.CodeDatabaseError, err)
	}
	total, err := s.equipment.Count(ctx, filters)
	if err != nil {
		return nil, 0, errors.WithCode(errors.CodeDatabaseError, err)
	}
	return items, total, nil
}
