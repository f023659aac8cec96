package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
	"github.com/ironsheep/sketch-tools-mcp/internal/export"
	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/imaging"
	"github.com/ironsheep/sketch-tools-mcp/internal/ocr"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

var (
	ErrNoReference         = errors.New("no reference image set")
	ErrNoDetector          = errors.New("rectangle detection is not configured")
	ErrDetectionInProgress = errors.New("detection already in progress")
)

// Detector runs rectangle detection on a frame. *detection.Client
// implements it.
type Detector interface {
	Detect(ctx context.Context, f *detection.Frame, opts detection.Options) ([]geometry.Box, error)
}

// LabelExtractor reads the words of an image. ocr.ExtractLabels is the
// default.
type LabelExtractor func(img image.Image, opts ocr.Options) ([]ocr.Label, error)

// Session is one sketch being edited together with the reference image it
// is traced over.
type Session struct {
	sketch   *sketch.Sketch
	detector Detector
	extract  LabelExtractor
	ocrOpts  ocr.Options
	logger   *slog.Logger

	mu        sync.RWMutex
	reference image.Image
	source    string
	opacity   float64

	detecting atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithDetector sets the detector used by AutoDetect.
func WithDetector(d Detector) Option {
	return func(s *Session) { s.detector = d }
}

// WithLabelExtractor replaces the OCR engine used by ImportReferenceText.
func WithLabelExtractor(fn LabelExtractor, opts ocr.Options) Option {
	return func(s *Session) {
		if fn != nil {
			s.extract = fn
		}
		s.ocrOpts = opts
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a session with an empty sketch over grid g.
func New(g geometry.Grid, opts ...Option) *Session {
	s := &Session{
		sketch:  sketch.New(g),
		extract: ocr.ExtractLabels,
		logger:  slog.Default(),
		opacity: imaging.DefaultOpacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sketch returns the sketch being edited.
func (s *Session) Sketch() *sketch.Sketch {
	return s.sketch
}

// Export renders the current sketch in format f.
func (s *Session) Export(f export.Format) ([]byte, error) {
	return export.Render(f, s.sketch.Shapes(), s.sketch.Grid())
}

// SetReference installs img as the reference image. source is a free-form
// description such as the file path.
func (s *Session) SetReference(img image.Image, source string) {
	s.mu.Lock()
	s.reference = img
	s.source = source
	s.mu.Unlock()
}

// ClearReference removes the reference image.
func (s *Session) ClearReference() {
	s.SetReference(nil, "")
}

// SetOpacity sets the reference opacity, clamped to [0, 1].
func (s *Session) SetOpacity(opacity float64) {
	s.mu.Lock()
	s.opacity = math.Max(0, math.Min(1, opacity))
	s.mu.Unlock()
}

// ReferenceInfo describes the current reference image.
type ReferenceInfo struct {
	Source    string            `json:"source"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Opacity   float64           `json:"opacity"`
	Placement imaging.Placement `json:"placement"`
}

// Reference reports the reference image and where it sits on the canvas.
// ok is false when none is set.
func (s *Session) Reference() (info ReferenceInfo, ok bool) {
	img, source, opacity := s.snapshot()
	if img == nil {
		return ReferenceInfo{}, false
	}
	g := s.sketch.Grid()
	b := img.Bounds()
	return ReferenceInfo{
		Source:    source,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Opacity:   opacity,
		Placement: imaging.FitPlacement(b.Dx(), b.Dy(), g.CanvasW, g.CanvasH),
	}, true
}

func (s *Session) snapshot() (image.Image, string, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reference, s.source, s.opacity
}

// Detecting reports whether AutoDetect is running.
func (s *Session) Detecting() bool {
	return s.detecting.Load()
}

// AutoDetect finds rectangles in the reference image, as displayed behind the
// canvas, and adds each one to the sketch labelled "auto#xxxx".
//
// Only one detection runs per session at a time; a second call while one is
// in flight fails with ErrDetectionInProgress. The sketch is modified only
// after the detector has returned a complete result, so a failed detection
// leaves it untouched.
func (s *Session) AutoDetect(ctx context.Context, opts detection.Options) ([]sketch.Rect, error) {
	if s.detector == nil {
		return nil, ErrNoDetector
	}
	img, _, opacity := s.snapshot()
	if img == nil {
		return nil, ErrNoReference
	}
	g := s.sketch.Grid()
	if err := g.CheckCanvas(); err != nil {
		return nil, err
	}
	if !s.detecting.CompareAndSwap(false, true) {
		return nil, ErrDetectionInProgress
	}
	defer s.detecting.Store(false)

	composite, _ := imaging.ComposeReference(img,
		int(math.Round(g.CanvasW)), int(math.Round(g.CanvasH)), opacity)
	frame := imaging.ToFrame(composite)

	boxes, err := s.detector.Detect(ctx, &frame, opts)
	if err != nil {
		s.logger.Warn("auto-detect failed", "error", err)
		return nil, fmt.Errorf("auto-detect: %w", err)
	}

	rects := s.sketch.AddDetected(boxes)
	s.logger.Info("auto-detect finished", "rectangles", len(rects))
	return rects, nil
}

// ImportReferenceText reads the words of the reference image and adds each
// one to the sketch as text at the word's top-left corner, in canvas
// coordinates.
func (s *Session) ImportReferenceText() ([]sketch.Text, error) {
	img, _, _ := s.snapshot()
	if img == nil {
		return nil, ErrNoReference
	}

	labels, err := s.extract(img, s.ocrOpts)
	if err != nil {
		return nil, fmt.Errorf("read reference text: %w", err)
	}

	g := s.sketch.Grid()
	b := img.Bounds()
	pl := imaging.FitPlacement(b.Dx(), b.Dy(), g.CanvasW, g.CanvasH)

	texts := make([]sketch.Text, 0, len(labels))
	for _, l := range labels {
		p := pl.ToCanvas(l.Box.X-b.Min.X, l.Box.Y-b.Min.Y)
		t, err := s.sketch.AddText(p, l.Text)
		if err != nil {
			continue
		}
		texts = append(texts, t)
	}
	s.logger.Info("reference text imported", "labels", len(labels), "added", len(texts))
	return texts, nil
}
