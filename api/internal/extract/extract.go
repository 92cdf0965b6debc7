// Package extract serves one extraction request end to end: it validates
// the page selection, rasterizes the upload, runs the pipeline and
// annotates, exports and caches the result.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/imaging"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/lmm"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/ocr"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/pipeline"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/raster"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/store"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/util"
)

// ErrInvalidRequest marks errors caused by the caller's input.
var ErrInvalidRequest = errors.New("invalid request")

type requestError struct{ msg string }

func (e *requestError) Error() string        { return e.msg }
func (e *requestError) Is(target error) bool { return target == ErrInvalidRequest }

func invalid(msg string) error { return &requestError{msg: msg} }

type Document struct {
	Name string
	Data []byte
}

type Request struct {
	Document     Document
	Selection    Selection
	ShowRotation bool
}

type Response struct {
	RunID   string
	Records []pipeline.Record
	Cached  bool
}

// Cache stores finished results by document, engine, model and selection.
type Cache interface {
	Find(ctx context.Context, key store.ResultKey, maxAge time.Duration) (*store.ResultRow, error)
	Upsert(ctx context.Context, key store.ResultKey, runID string, records []pipeline.Record) error
}

type Options struct {
	DPI          int
	Debug        bool
	CallTimeout  time.Duration
	HintLogDir   string
	CorrectedDir string
	CacheMaxAge  time.Duration
}

type Service struct {
	rasterizer raster.Rasterizer
	detector   ocr.Detector
	opts       Options
	cache      Cache
	logger     *slog.Logger
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(r raster.Rasterizer, d ocr.Detector, opts Options, extra ...Option) *Service {
	s := &Service{
		rasterizer: r,
		detector:   d,
		opts:       opts,
		logger:     slog.Default(),
	}
	for _, o := range extra {
		o(s)
	}
	return s
}

func (s *Service) DPI() int {
	return s.opts.DPI
}

func (s *Service) orchestrator(engine lmm.Engine, logger *slog.Logger) *pipeline.Orchestrator {
	return pipeline.New(
		pipeline.Config{Model: engine.GetModel(), Debug: s.opts.Debug},
		s.detector,
		engine,
		pipeline.WithLogger(logger),
		pipeline.WithCallTimeout(s.opts.CallTimeout),
	)
}

// Extract runs the selected pages of the document through engine.
func (s *Service) Extract(ctx context.Context, req Request, engine lmm.Engine) (*Response, error) {
	if len(req.Document.Data) == 0 {
		return nil, invalid("empty file")
	}

	runID := uuid.NewString()
	logger := s.logger.With("run", runID, "file", req.Document.Name)

	key := store.ResultKey{
		DocHash:      util.SHA256Hex(req.Document.Data),
		Engine:       engine.Name(),
		Model:        engine.GetModel(),
		Pages:        req.Selection.String(),
		ShowRotation: req.ShowRotation,
	}

	if s.cache != nil {
		row, err := s.cache.Find(ctx, key, s.opts.CacheMaxAge)
		switch {
		case err == nil:
			logger.Info("cache hit", "cached_run", row.RunID)
			return &Response{RunID: row.RunID, Records: row.Records, Cached: true}, nil
		case !errors.Is(err, store.ErrNotFound):
			logger.Warn("cache lookup failed", "error", err)
		}
	}

	images, err := s.rasterize(ctx, req.Document.Data)
	if err != nil {
		return nil, err
	}

	first, last, err := req.Selection.Resolve(len(images))
	if err != nil {
		return nil, err
	}

	pages := make([]pipeline.Page, 0, last-first+1)
	for n := first; n <= last; n++ {
		pages = append(pages, pipeline.Page{Number: n, Image: images[n-1]})
	}

	hintLog, closeLog, err := s.openHintLog(req.Document.Name, runID)
	if err != nil {
		return nil, err
	}
	defer closeLog()

	logger.Info("run started", "pages", len(pages), "first", first, "last", last, "engine", engine.Name())

	res, err := s.orchestrator(engine, logger).Run(ctx, pages, hintLog)
	if err != nil {
		return nil, err
	}

	records := res.Records
	if req.ShowRotation {
		records = AnnotateRotation(records, res.Rotations())
	}

	if s.opts.CorrectedDir != "" {
		if err := s.exportCorrected(req.Document.Name, res.Pages); err != nil {
			logger.Warn("corrected export failed", "error", err)
		}
	}

	switch {
	case s.cache == nil:
	case !res.Complete():
		logger.Warn("result not cached, some pages failed", "failed", res.Failed)
	default:
		if err := s.cache.Upsert(ctx, key, runID, records); err != nil {
			logger.Warn("cache store failed", "error", err)
		}
	}

	logger.Info("run finished", "records", len(records), "failed", len(res.Failed))

	return &Response{RunID: runID, Records: records}, nil
}

// Inspect returns the raw model reply for one page, for debugging prompts.
func (s *Service) Inspect(ctx context.Context, doc Document, page int, engine lmm.Engine) (string, int, error) {
	if len(doc.Data) == 0 {
		return "", 0, invalid("empty file")
	}

	images, err := s.rasterize(ctx, doc.Data)
	if err != nil {
		return "", 0, err
	}

	if _, _, err := SinglePage(page).Resolve(len(images)); err != nil {
		return "", 0, err
	}

	return s.orchestrator(engine, s.logger).Inspect(ctx, pipeline.Page{Number: page, Image: images[page-1]})
}

// AnnotateRotation sets PageRotation on every record from the page's
// applied angle. Pages without an entry get 0.
func AnnotateRotation(records []pipeline.Record, rotations map[int]int) []pipeline.Record {
	out := make([]pipeline.Record, len(records))
	for i, r := range records {
		angle := rotations[r.Page]
		r.PageRotation = &angle
		out[i] = r
	}
	return out
}

func (s *Service) rasterize(ctx context.Context, data []byte) ([]image.Image, error) {
	f, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	images, err := s.rasterizer.Rasterize(ctx, f.Name(), s.opts.DPI)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}

	return images, nil
}

// openHintLog opens ocr_log_<name>_<runID>.txt in HintLogDir, or in a
// temporary directory that is removed when the returned close func runs.
func (s *Service) openHintLog(name, runID string) (io.Writer, func(), error) {
	dir := s.opts.HintLogDir
	cleanup := func() {}

	if dir == "" {
		tmp, err := os.MkdirTemp("", "hintlog-*")
		if err != nil {
			return nil, nil, err
		}
		dir = tmp
		cleanup = func() { _ = os.RemoveAll(tmp) }
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}

	f, err := os.Create(filepath.Join(dir, "ocr_log_"+baseName(name)+"_"+runID+".txt"))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return f, func() {
		_ = f.Close()
		cleanup()
	}, nil
}

func (s *Service) exportCorrected(name string, pages []pipeline.Page) error {
	if err := os.MkdirAll(s.opts.CorrectedDir, 0o755); err != nil {
		return err
	}

	base := baseName(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	for _, p := range pages {
		path := filepath.Join(s.opts.CorrectedDir, fmt.Sprintf("corrected_%s_p%d.tif", stem, p.Number))

		f, err := os.Create(path)
		if err != nil {
			return err
		}

		if err := imaging.WriteTIFF(f, p.Image); err != nil {
			f.Close()
			return fmt.Errorf("page %d: %w", p.Number, err)
		}

		if err := f.Close(); err != nil {
			return err
		}
	}

	return nil
}

func baseName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
