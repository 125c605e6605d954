package ui

import (
	"context"
	stderrors "errors"
	stdhtml "html"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"assetdesk/app"
	"assetdesk/domain/core"
	"assetdesk/internal"
	"assetdesk/internal/errors"
	"assetdesk/ports"
	"assetdesk/ui/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const defaultPageSize = 50

// Server exposes the import pipeline over HTTP
type Server struct {
	router    *gin.Engine
	imports   *app.ImportService
	maxUpload int64
	logger    *internal.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithMaxUploadBytes caps request bodies
func WithMaxUploadBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithServerLogger sets the logger
func WithServerLogger(logger *internal.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates the API server
func NewServer(imports *app.ImportService, opts ...ServerOption) *Server {
	s := &Server{
		router:    gin.New(),
		imports:   imports,
		maxUpload: 20 << 20,
		logger:    internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestLogger(s.logger))
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	api.POST("/imports", s.handleImport)
	api.POST("/imports/preview", s.handlePreview)
	api.GET("/imports", s.handleListImports)
	api.GET("/imports/:id", s.handleGetImport)
	api.GET("/imports/:id/report", s.handleImportReport)

	api.GET("/equipment", s.handleListEquipment)
	api.GET("/equipment/:id", s.handleGetEquipment)
	api.GET("/schema", s.handleSchema)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[http] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleImport(c *gin.Context) {
	req, cleanup, err := s.readUpload(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer cleanup()

	batch, err := s.imports.Import(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

func (s *Server) handlePreview(c *gin.Context) {
	req, cleanup, err := s.readUpload(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer cleanup()

	result, err := s.imports.Preview(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListImports(c *gin.Context) {
	limit, offset := paging(c)
	batches, err := s.imports.ListImports(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imports": batches})
}

func (s *Server) handleGetImport(c *gin.Context) {
	id, err := core.ParseImportID(c.Param("id"))
	if err != nil {
		s.writeError(c, errors.InvalidInput(err.Error()))
		return
	}
	batch, err := s.imports.GetImport(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (s *Server) handleImportReport(c *gin.Context) {
	id, err := core.ParseImportID(c.Param("id"))
	if err != nil {
		s.writeError(c, errors.InvalidInput(err.Error()))
		return
	}
	batch, err := s.imports.GetImport(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	md := app.RenderReport(batch)
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", renderHTML(md, "Import "+batch.FileName))
}

func (s *Server) handleListEquipment(c *gin.Context) {
	limit, offset := paging(c)
	filters := ports.EquipmentFilters{
		Profile: c.Query("profile"),
		Type:    c.Query("type"),
		Limit:   limit,
		Offset:  offset,
	}
	if raw := c.Query("import_id"); raw != "" {
		id, err := core.ParseImportID(raw)
		if err != nil {
			s.writeError(c, errors.InvalidInput(err.Error()))
			return
		}
		filters.ImportID = &id
	}

	items, total, err := s.imports.ListEquipment(c.Request.Context(), filters)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"equipment": items, "total": total, "limit": limit, "offset": offset})
}

func (s *Server) handleGetEquipment(c *gin.Context) {
	id, err := core.ParseEquipmentID(c.Param("id"))
	if err != nil {
		s.writeError(c, errors.InvalidInput(err.Error()))
		return
	}
	eq, err := s.imports.GetEquipment(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eq)
}

func (s *Server) handleSchema(c *gin.Context) {
	engine, err := s.imports.Engine(c.Query("profile"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	sch := engine.Schema()

	if c.Query("format") == "yaml" {
		data, err := sch.Document().Marshal()
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", data)
		return
	}

	fields := make([]gin.H, 0, len(sch.Fields()))
	for _, f := range sch.Fields() {
		fields = append(fields, gin.H{
			"name":     f.Name,
			"kind":     f.Kind,
			"default":  f.Default,
			"synonyms": f.Synonyms,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":     sch.Profile(),
		"version":     sch.Version(),
		"placeholder": sch.Placeholder(),
		"threshold":   sch.Threshold(),
		"identifier":  sch.IdentifierField(),
		"type_tags":   sch.TypeTags(),
		"fields":      fields,
		"profiles":    s.imports.Profiles(),
	})
}

// readUpload accepts either a multipart form with a "file" part, or a raw
// JSON sheet body. The profile comes from the "profile" form field or query.
func (s *Server) readUpload(c *gin.Context) (app.ImportRequest, func(), error) {
	noop := func() {}
	if c.Request.ContentLength > s.maxUpload {
		return app.ImportRequest{}, noop, &http.MaxBytesError{Limit: s.maxUpload}
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	if strings.HasPrefix(c.ContentType(), "application/json") {
		name := c.DefaultQuery("name", "upload.json")
		if !strings.HasSuffix(strings.ToLower(name), ".json") {
			name += ".json"
		}
		return app.ImportRequest{FileName: name, Content: c.Request.Body, Profile: c.Query("profile")}, noop, nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return app.ImportRequest{}, noop, err
		}
		return app.ImportRequest{}, noop, errors.InvalidInput(`expected a multipart "file" field or a JSON body`)
	}
	f, err := fh.Open()
	if err != nil {
		return app.ImportRequest{}, noop, errors.Wrap(err, "failed to open upload")
	}

	profile := c.PostForm("profile")
	if profile == "" {
		profile = c.Query("profile")
	}
	return app.ImportRequest{FileName: fh.Filename, Content: f, Profile: profile}, closer(f), nil
}

func closer(f multipart.File) func() {
	return func() { _ = f.Close() }
}

// writeError maps application error codes onto HTTP statuses
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := errors.GetCode(err)

	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		status, code = http.StatusRequestEntityTooLarge, errors.CodeInvalidInput
	case stderrors.Is(err, context.Canceled):
		status = 499
	default:
		switch code {
		case errors.CodeInvalidInput, errors.CodeValidationError:
			status = http.StatusBadRequest
		case errors.CodeNotFound:
			status = http.StatusNotFound
		case errors.CodeDuplicate:
			status = http.StatusConflict
		case errors.CodeUnsupportedFormat:
			status = http.StatusUnsupportedMediaType
		case errors.CodePreconditionFailed:
			status = http.StatusUnprocessableEntity
		}
	}

	if status >= 500 {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func paging(c *gin.Context) (int, int) {
	limit := queryInt(c, "limit", defaultPageSize)
	if limit <= 0 || limit > 500 {
		limit = defaultPageSize
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}

// renderHTML turns a Markdown document into a complete HTML page. Report
// text comes from uploaded sheets, so raw HTML is dropped and links are
// limited to safe protocols.
func renderHTML(md, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML | html.Safelink,
		// the title bypasses escaping when smartypants is on
		Title: stdhtml.EscapeString(title),
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}
