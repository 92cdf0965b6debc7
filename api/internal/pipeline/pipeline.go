// Package pipeline turns rasterized patent drawing pages into per-figure
// component label records: orientation correction, a shared crop box,
// local OCR hints, one model call per page and a deterministic merge.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/imaging"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/lmm"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/ocr"
)

const (
	DefaultPadding     = 50
	DefaultCallTimeout = 120 * time.Second
)

// Config is fixed for the lifetime of an Orchestrator.
type Config struct {
	Model string
	Debug bool
}

// Page is one rasterized page. Rotation is the counter-clockwise angle that
// was applied to Image, if any.
type Page struct {
	Number   int
	Image    image.Image
	Rotation int
}

type Stage string

const (
	StageRotation Stage = "rotation"
	StageBounds   Stage = "bounds"
	StageExtract  Stage = "extract"
	StageMerge    Stage = "merge"
)

// Result is the outcome of one run. Pages holds the corrected, cropped
// pages in input order. Failed lists the pages whose model call failed and
// contributed no records.
type Result struct {
	Records []Record
	Pages   []Page
	Failed  []int
}

// Complete reports whether every page got a model reply.
func (r *Result) Complete() bool {
	return len(r.Failed) == 0
}

// Rotations maps page numbers to the angle applied to them.
func (r *Result) Rotations() map[int]int {
	out := make(map[int]int, len(r.Pages))
	for _, p := range r.Pages {
		out[p.Number] = p.Rotation
	}
	return out
}

type Orchestrator struct {
	cfg       Config
	detector  ocr.Detector
	engine    lmm.Engine
	corrector *Corrector
	logger    *slog.Logger
	timeout   time.Duration
	padding   int
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithPadding(px int) Option {
	return func(o *Orchestrator) {
		if px >= 0 {
			o.padding = px
		}
	}
}

func New(cfg Config, detector ocr.Detector, engine lmm.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		detector:  detector,
		engine:    engine,
		corrector: NewCorrector(detector),
		logger:    slog.Default(),
		timeout:   DefaultCallTimeout,
		padding:   DefaultPadding,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Run processes pages in order. Rotation and hint detection failures abort
// the run; a failed model call only loses that page. hintLog receives one
// block per page and may be nil.
func (o *Orchestrator) Run(ctx context.Context, pages []Page, hintLog io.Writer) (*Result, error) {
	if hintLog == nil {
		hintLog = io.Discard
	}

	corrected := make([]Page, len(pages))
	images := make([]image.Image, len(pages))

	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, angle, err := o.corrector.Correct(ctx, p.Image)
		if err != nil {
			return nil, fmt.Errorf("page %d: %s: %w", p.Number, StageRotation, err)
		}

		if angle != 0 {
			o.logger.Info("page rotated", "page", p.Number, "angle", angle)
		}

		corrected[i] = Page{Number: p.Number, Image: img, Rotation: angle}
		images[i] = img
	}

	box := Unify(images)
	if box == nil {
		o.logger.Warn("no content found on any page, skipping crop")
	} else {
		o.logger.Debug("content bounds", "stage", StageBounds,
			"left", box.Left, "top", box.Top, "right", box.Right, "bottom", box.Bottom)
	}

	merger := NewMerger()
	var failed []int

	for i := range corrected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := &corrected[i]
		p.Image = Crop(p.Image, box, o.padding)

		hints, err := ExtractHints(ctx, o.detector, p.Image)
		if err != nil {
			return nil, fmt.Errorf("page %d: %s: %w", p.Number, StageExtract, err)
		}

		if err := WriteHintLog(hintLog, p.Number, hints); err != nil {
			o.logger.Warn("hint log write failed", "page", p.Number, "error", err)
		}

		entries, err := o.extract(ctx, *p, hints)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			o.logger.Error("page extraction failed", "page", p.Number, "error", err)
			failed = append(failed, p.Number)
			continue
		}

		kept := merger.Add(p.Number, entries)
		o.logger.Info("page parsed", "page", p.Number, "hints", len(hints), "entries", len(entries), "kept", kept)
	}

	o.logger.Debug("run finished", "stage", StageMerge, "records", merger.Len(), "failed", len(failed))

	return &Result{Records: merger.Results(), Pages: corrected, Failed: failed}, nil
}

// Inspect runs a single page through rotation, its own crop and the model
// call and returns the untouched model reply with the applied angle.
func (o *Orchestrator) Inspect(ctx context.Context, p Page) (string, int, error) {
	img, angle, err := o.corrector.Correct(ctx, p.Image)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", StageRotation, err)
	}

	img = Crop(img, Unify([]image.Image{img}), o.padding)

	hints, err := ExtractHints(ctx, o.detector, img)
	if err != nil {
		return "", angle, fmt.Errorf("%s: %w", StageExtract, err)
	}

	raw, err := o.call(ctx, Page{Number: p.Number, Image: img, Rotation: angle}, hints)
	return raw, angle, err
}

func (o *Orchestrator) extract(ctx context.Context, p Page, hints []Hint) ([]Entry, error) {
	raw, err := o.call(ctx, p, hints)
	if err != nil {
		return nil, err
	}

	if o.cfg.Debug {
		o.logger.Debug("model reply", "page", p.Number, "raw", raw)
	}

	return ParseEntries(raw), nil
}

var ErrCallTimeout = errors.New("model call timed out")

type reply struct {
	text string
	err  error
}

// call sends one page to the engine and waits at most o.timeout, even when
// the engine ignores its context.
func (o *Orchestrator) call(ctx context.Context, p Page, hints []Hint) (string, error) {
	prompt, err := BuildPrompt(p.Number, hints)
	if err != nil {
		return "", err
	}

	data, err := imaging.EncodePNG(p.Image)
	if err != nil {
		return "", fmt.Errorf("encode page: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req := lmm.Request{
		Image:    data,
		MIMEType: "image/png",
		Prompt:   prompt,
		Model:    o.cfg.Model,
	}

	done := make(chan reply, 1)
	go func() {
		text, err := o.engine.Generate(callCtx, req)
		done <- reply{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("%s: %w", o.engine.Name(), r.err)
		}
		return r.text, nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s: %w", o.engine.Name(), ErrCallTimeout)
	}
}
