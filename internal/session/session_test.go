package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
	"github.com/ironsheep/sketch-tools-mcp/internal/export"
	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/ocr"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
	"github.com/ironsheep/sketch-tools-mcp/internal/vision"
)

type fakeDetector struct {
	mu      sync.Mutex
	frames  []detection.Frame
	boxes   []geometry.Box
	err     error
	release chan struct{}
	entered chan struct{}
}

func (f *fakeDetector) Detect(ctx context.Context, fr *detection.Frame, opts detection.Options) ([]geometry.Box, error) {
	f.mu.Lock()
	f.frames = append(f.frames, *fr)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.boxes, f.err
}

func testGrid() geometry.Grid {
	return geometry.Grid{Cols: 4, Rows: 4, CanvasW: 200, CanvasH: 100}
}

func referenceImage(width, height int, dark image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if image.Pt(x, y).In(dark) {
				c = color.RGBA{34, 34, 34, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestAutoDetectNoReference(t *testing.T) {
	s := New(testGrid(), WithDetector(&fakeDetector{}))
	if _, err := s.AutoDetect(context.Background(), detection.Options{}); !errors.Is(err, ErrNoReference) {
		t.Errorf("error = %v, want ErrNoReference", err)
	}
}

func TestAutoDetectNoDetector(t *testing.T) {
	s := New(testGrid())
	s.SetReference(referenceImage(10, 10, image.Rectangle{}), "ref.png")
	if _, err := s.AutoDetect(context.Background(), detection.Options{}); !errors.Is(err, ErrNoDetector) {
		t.Errorf("error = %v, want ErrNoDetector", err)
	}
}

func TestAutoDetectAddsRects(t *testing.T) {
	d := &fakeDetector{boxes: []geometry.Box{{X: 10, Y: 10, W: 50, H: 30}, {X: 100, Y: 20, W: 40, H: 40}}}
	s := New(testGrid(), WithDetector(d))
	s.SetReference(referenceImage(400, 200, image.Rectangle{}), "ref.png")

	rects, err := s.AutoDetect(context.Background(), detection.Options{MinSize: 5})
	if err != nil {
		t.Fatalf("AutoDetect failed: %v", err)
	}
	if len(rects) != 2 || s.Sketch().Len() != 2 {
		t.Fatalf("added %d rects, sketch has %d shapes", len(rects), s.Sketch().Len())
	}
	for _, r := range rects {
		if !strings.HasPrefix(r.Label, "auto#") || len(r.Label) != len("auto#")+4 {
			t.Errorf("label = %q, want auto#xxxx", r.Label)
		}
	}
	if rects[0].X != 10 || rects[0].W != 50 {
		t.Errorf("rect not added verbatim: %+v", rects[0])
	}

	// The detector sees the reference composed onto the canvas.
	if len(d.frames) != 1 {
		t.Fatalf("detector called %d times, want 1", len(d.frames))
	}
	if d.frames[0].Width != 200 || d.frames[0].Height != 100 {
		t.Errorf("frame size %dx%d, want the 200x100 canvas", d.frames[0].Width, d.frames[0].Height)
	}
	if s.Detecting() {
		t.Error("detecting flag left set")
	}
}

func TestAutoDetectFailureLeavesSketch(t *testing.T) {
	d := &fakeDetector{err: errors.New("worker crashed")}
	s := New(testGrid(), WithDetector(d))
	s.Sketch().AddRect(geometry.Rect{X: 0, Y: 0, W: 50, H: 50}, "keep")
	s.SetReference(referenceImage(20, 20, image.Rectangle{}), "")

	if _, err := s.AutoDetect(context.Background(), detection.Options{}); err == nil {
		t.Fatal("AutoDetect succeeded with a failing detector")
	}
	shapes := s.Sketch().Shapes()
	if len(shapes) != 1 || shapes[0].(sketch.Rect).Label != "keep" {
		t.Errorf("sketch modified by failed detection: %+v", shapes)
	}
}

func TestAutoDetectSingleFlight(t *testing.T) {
	d := &fakeDetector{
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	s := New(testGrid(), WithDetector(d))
	s.SetReference(referenceImage(20, 20, image.Rectangle{}), "")

	done := make(chan error, 1)
	go func() {
		_, err := s.AutoDetect(context.Background(), detection.Options{})
		done <- err
	}()
	<-d.entered

	if !s.Detecting() {
		t.Error("Detecting = false while a detection runs")
	}
	if _, err := s.AutoDetect(context.Background(), detection.Options{}); !errors.Is(err, ErrDetectionInProgress) {
		t.Errorf("concurrent AutoDetect error = %v, want ErrDetectionInProgress", err)
	}

	close(d.release)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("first AutoDetect failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first AutoDetect never returned")
	}
}

func TestAutoDetectWithWorker(t *testing.T) {
	client := detection.NewClient(vision.NewLoader(vision.Sources(vision.BildName)))
	defer client.Close()

	g := geometry.Grid{Cols: 8, Rows: 6, CanvasW: 400, CanvasH: 300}
	s := New(g, WithDetector(client))
	s.SetReference(referenceImage(400, 300, image.Rect(80, 60, 280, 200)), "mock.png")

	rects, err := s.AutoDetect(context.Background(), detection.Options{MinSize: 20})
	if err != nil {
		t.Fatalf("AutoDetect failed: %v", err)
	}
	if len(rects) != 1 {
		t.Fatalf("detected %d rects, want 1: %+v", len(rects), rects)
	}
	r := rects[0]
	if r.X < 74 || r.X > 84 || r.Y < 54 || r.Y > 64 || r.W < 190 || r.W > 210 || r.H < 130 || r.H > 150 {
		t.Errorf("detected rect %+v, want near (80, 60, 200, 140)", r)
	}
}

func TestImportReferenceText(t *testing.T) {
	extract := func(img image.Image, opts ocr.Options) ([]ocr.Label, error) {
		if opts.Language != "deu" {
			t.Errorf("language = %q, want deu", opts.Language)
		}
		return []ocr.Label{
			{Text: "Header", Box: geometry.Box{X: 20, Y: 10, W: 60, H: 12}},
			{Text: "  ", Box: geometry.Box{X: 0, Y: 0, W: 1, H: 1}},
		}, nil
	}
	s := New(testGrid(), WithLabelExtractor(extract, ocr.Options{Language: "deu"}))

	if _, err := s.ImportReferenceText(); !errors.Is(err, ErrNoReference) {
		t.Fatalf("error = %v, want ErrNoReference", err)
	}

	// 400x200 fits the 200x100 canvas at half scale.
	s.SetReference(referenceImage(400, 200, image.Rectangle{}), "")
	texts, err := s.ImportReferenceText()
	if err != nil {
		t.Fatalf("ImportReferenceText failed: %v", err)
	}
	if len(texts) != 1 {
		t.Fatalf("imported %d texts, want 1", len(texts))
	}
	if texts[0].Text != "Header" || texts[0].X != 10 || texts[0].Y != 5 {
		t.Errorf("text = %+v, want Header at (10, 5)", texts[0])
	}
}

func TestImportReferenceTextError(t *testing.T) {
	extract := func(image.Image, ocr.Options) ([]ocr.Label, error) {
		return nil, ocr.ErrUnavailable
	}
	s := New(testGrid(), WithLabelExtractor(extract, ocr.Options{}))
	s.SetReference(referenceImage(10, 10, image.Rectangle{}), "")

	if _, err := s.ImportReferenceText(); !errors.Is(err, ocr.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if s.Sketch().Len() != 0 {
		t.Error("sketch modified by failed import")
	}
}

func TestReferenceInfo(t *testing.T) {
	s := New(testGrid())
	if _, ok := s.Reference(); ok {
		t.Fatal("Reference reported an image before one was set")
	}
	s.SetReference(referenceImage(100, 100, image.Rectangle{}), "square.png")
	s.SetOpacity(4)

	info, ok := s.Reference()
	if !ok {
		t.Fatal("Reference not set")
	}
	if info.Source != "square.png" || info.Opacity != 1 {
		t.Errorf("info = %+v", info)
	}
	if info.Placement.X != 50 || info.Placement.W != 100 {
		t.Errorf("placement = %+v, want centred 100x100", info.Placement)
	}

	s.ClearReference()
	if _, ok := s.Reference(); ok {
		t.Error("reference still set after ClearReference")
	}
}

func TestExport(t *testing.T) {
	s := New(geometry.Grid{Cols: 4, Rows: 4, CanvasW: 400, CanvasH: 400})
	s.Sketch().AddRect(geometry.Rect{X: 0, Y: 0, W: 100, H: 100}, "nav")

	out, err := s.Export(export.FormatJSON)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(out), `"label": "nav"`) {
		t.Errorf("json export missing label:\n%s", out)
	}
	if _, err := s.Export(export.Format("svg")); !errors.Is(err, export.ErrUnknownFormat) {
		t.Errorf("unknown format error = %v", err)
	}
}

func TestCanvasSizeChecked(t *testing.T) {
	grids := []geometry.Grid{
		{Cols: 4, Rows: 4, CanvasW: 1e9, CanvasH: 100},
		{Cols: 4, Rows: 4, CanvasW: 200, CanvasH: geometry.MaxCanvasSize + 1},
		{Cols: 4, Rows: 4, CanvasW: 0, CanvasH: 100},
	}
	for _, g := range grids {
		d := &fakeDetector{}
		s := New(g, WithDetector(d))
		s.SetReference(referenceImage(20, 20, image.Rectangle{}), "ref.png")

		if _, err := s.AutoDetect(context.Background(), detection.Options{}); !errors.Is(err, geometry.ErrCanvasSize) {
			t.Errorf("AutoDetect on %vx%v: error = %v, want ErrCanvasSize", g.CanvasW, g.CanvasH, err)
		}
		if len(d.frames) != 0 || s.Detecting() {
			t.Errorf("AutoDetect on %vx%v reached the detector", g.CanvasW, g.CanvasH)
		}
		if _, err := s.Preview(PreviewOptions{Shapes: true}); !errors.Is(err, geometry.ErrCanvasSize) {
			t.Errorf("Preview on %vx%v: error = %v, want ErrCanvasSize", g.CanvasW, g.CanvasH, err)
		}
	}
}
