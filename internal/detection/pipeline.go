package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/vision"
)

// ErrInvalidFrame is returned for a frame whose buffer does not hold exactly
// Width*Height RGBA pixels.
var ErrInvalidFrame = errors.New("detection: invalid frame")

// Frame is a tightly packed RGBA image, four bytes per pixel, row by row.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// Validate reports whether the frame is usable.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrInvalidFrame, len(f.Pix), f.Width, f.Height)
	}
	return nil
}

// Pipeline finds axis-aligned rectangles in a frame with a vision backend.
type Pipeline struct {
	Backend vision.Backend

	// Logf receives one progress line per stage. It may be nil.
	Logf func(format string, args ...any)
}

// Run detects rectangles in f.
//
// The frame is downscaled when its longer side exceeds opts.MaxDim, converted
// to grayscale, blurred with a 5x5 Gaussian kernel and passed through Canny.
// Each external contour is approximated to a polygon whose bounding rectangle
// is kept when both sides exceed opts.MinSize. Kept rectangles are scaled back
// to frame pixels, rounding to the nearest pixel, and overlapping ones are
// merged with geometry.MergeOverlaps.
//
// Every intermediate image is closed as soon as the next stage has consumed
// it. Any stage failure aborts the whole run; no partial result is returned.
// f.Pix is only read.
func (p *Pipeline) Run(ctx context.Context, f Frame, opts Options) ([]geometry.Box, error) {
	if p.Backend == nil {
		return nil, errors.New("detection: pipeline has no backend")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()
	b := p.Backend

	work, err := b.FromRGBA(f.Pix, f.Width, f.Height)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	p.logf("frame decoded (%dx%d)", f.Width, f.Height)

	scale := 1.0
	if longest := max(f.Width, f.Height); longest > opts.MaxDim {
		scale = float64(opts.MaxDim) / float64(longest)
		w := max(1, int(math.Round(float64(f.Width)*scale)))
		h := max(1, int(math.Round(float64(f.Height)*scale)))
		resized, err := b.Resize(work, w, h)
		work.Close()
		if err != nil {
			return nil, fmt.Errorf("resize: %w", err)
		}
		work = resized
		p.logf("frame scaled to %dx%d (scale=%.3f)", w, h, scale)
	}

	if err := ctx.Err(); err != nil {
		work.Close()
		return nil, err
	}

	gray, err := b.Grayscale(work)
	work.Close()
	if err != nil {
		return nil, fmt.Errorf("grayscale: %w", err)
	}

	blurred, err := b.GaussianBlur(gray, blurKernel)
	gray.Close()
	if err != nil {
		return nil, fmt.Errorf("blur: %w", err)
	}

	edges, err := b.Canny(blurred, opts.Canny1, opts.Canny2)
	blurred.Close()
	if err != nil {
		return nil, fmt.Errorf("canny: %w", err)
	}
	p.logf("edges found")

	if err := ctx.Err(); err != nil {
		edges.Close()
		return nil, err
	}

	contours, err := b.FindExternalContours(edges)
	edges.Close()
	if err != nil {
		return nil, fmt.Errorf("find contours: %w", err)
	}
	defer contours.Close()
	p.logf("%d contours", contours.Len())

	rects := make([]geometry.Box, 0, contours.Len())
	for i := 0; i < contours.Len(); i++ {
		poly, err := contours.Approx(i, opts.ApproxEps)
		if err != nil {
			return nil, fmt.Errorf("approximate contour %d: %w", i, err)
		}
		r := poly.BoundingRect()
		poly.Close()

		if r.Dx() > opts.MinSize && r.Dy() > opts.MinSize {
			rects = append(rects, scaleBack(r, scale))
		}
	}

	merged := geometry.MergeOverlaps(rects, opts.IoUThresh)
	p.logf("%d rectangles (%d after merge)", len(rects), len(merged))
	return merged, nil
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

// scaleBack maps a rectangle found in a downscaled image to frame pixels.
func scaleBack(r image.Rectangle, scale float64) geometry.Box {
	if scale == 1 {
		return geometry.Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
	}
	return geometry.Box{
		X: int(math.Round(float64(r.Min.X) / scale)),
		Y: int(math.Round(float64(r.Min.Y) / scale)),
		W: int(math.Round(float64(r.Dx()) / scale)),
		H: int(math.Round(float64(r.Dy()) / scale)),
	}
}
