package session

import (
	"image"
	"math"

	"github.com/ironsheep/sketch-tools-mcp/internal/imaging"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// PreviewOptions selects what Preview draws.
type PreviewOptions struct {
	// Region crops the preview, in canvas pixels. Empty means the whole
	// canvas.
	Region image.Rectangle
	Scale  float64

	Grid   bool
	Labels bool
	Shapes bool
}

// Preview renders the canvas as the sketch is traced: the reference
// composite (plain white without one), the layout grid and the outlines of
// the rectangles and paths.
func (s *Session) Preview(opts PreviewOptions) (*imaging.Preview, error) {
	g := s.sketch.Grid()
	if err := g.CheckCanvas(); err != nil {
		return nil, err
	}
	w, h := int(math.Round(g.CanvasW)), int(math.Round(g.CanvasH))

	var canvas *image.NRGBA
	if img, _, opacity := s.snapshot(); img != nil {
		canvas, _ = imaging.ComposeReference(img, w, h, opacity)
	} else {
		canvas = image.NewNRGBA(image.Rect(0, 0, max(1, w), max(1, h)))
		for i := range canvas.Pix {
			canvas.Pix[i] = 255
		}
	}

	var o imaging.Overlay
	if opts.Grid {
		o.Grid = g
		o.Labels = opts.Labels
	}
	if opts.Shapes {
		shapes := s.sketch.Shapes()
		for _, r := range sketch.Rects(shapes) {
			o.Rects = append(o.Rects, r.Bounds())
		}
		for _, p := range sketch.Paths(shapes) {
			o.Paths = append(o.Paths, p.Points)
		}
	}
	imaging.DrawOverlay(canvas, o)

	return imaging.EncodePreview(canvas, opts.Region, opts.Scale)
}
