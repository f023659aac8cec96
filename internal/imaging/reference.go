package imaging

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
)

// DefaultOpacity is the reference image opacity used when none is set.
const DefaultOpacity = 0.35

// Placement is where a reference image lands on the canvas: scaled by Scale
// and offset by (X, Y), in canvas pixels.
type Placement struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Scale float64 `json:"scale"`
}

// FitPlacement scales an imgW x imgH image to fit inside the canvas,
// preserving its aspect ratio, and centres it.
func FitPlacement(imgW, imgH int, canvasW, canvasH float64) Placement {
	if imgW <= 0 || imgH <= 0 || canvasW <= 0 || canvasH <= 0 {
		return Placement{Scale: 1}
	}
	scale := math.Min(canvasW/float64(imgW), canvasH/float64(imgH))
	w := float64(imgW) * scale
	h := float64(imgH) * scale
	return Placement{
		X:     (canvasW - w) / 2,
		Y:     (canvasH - h) / 2,
		W:     w,
		H:     h,
		Scale: scale,
	}
}

// ToCanvas maps a point in image pixels to canvas pixels.
func (p Placement) ToCanvas(x, y int) geometry.Point {
	return geometry.Point{
		X: p.X + float64(x)*p.Scale,
		Y: p.Y + float64(y)*p.Scale,
	}
}

// RectToCanvas maps an image pixel rectangle to canvas pixels.
func (p Placement) RectToCanvas(r image.Rectangle) geometry.Rect {
	tl := p.ToCanvas(r.Min.X, r.Min.Y)
	return geometry.Rect{
		X: tl.X,
		Y: tl.Y,
		W: float64(r.Dx()) * p.Scale,
		H: float64(r.Dy()) * p.Scale,
	}
}

// ComposeReference renders img the way it appears behind the sketch: fitted
// and centred on a canvasW x canvasH white canvas at the given opacity.
// Opacity is clamped to [0, 1]. The result is opaque.
//
// Rectangle detection runs on this composite, so detected boxes come out in
// canvas pixels.
func ComposeReference(img image.Image, canvasW, canvasH int, opacity float64) (*image.NRGBA, Placement) {
	opacity = math.Max(0, math.Min(1, opacity))
	canvas := image.Rect(0, 0, max(1, canvasW), max(1, canvasH))

	b := img.Bounds()
	pl := FitPlacement(b.Dx(), b.Dy(), float64(canvas.Dx()), float64(canvas.Dy()))
	target := image.Rect(
		int(math.Round(pl.X)),
		int(math.Round(pl.Y)),
		int(math.Round(pl.X+pl.W)),
		int(math.Round(pl.Y+pl.H)),
	)

	layer := image.NewNRGBA(canvas)
	draw.ApproxBiLinear.Scale(layer, target, img, b, draw.Src, nil)

	white := colorful.Color{R: 1, G: 1, B: 1}
	out := image.NewNRGBA(canvas)
	for i := 0; i < len(layer.Pix); i += 4 {
		a := float64(layer.Pix[i+3]) / 255 * opacity
		c := colorful.Color{
			R: float64(layer.Pix[i]) / 255,
			G: float64(layer.Pix[i+1]) / 255,
			B: float64(layer.Pix[i+2]) / 255,
		}
		r, g, bl := white.BlendRgb(c, a).Clamped().RGB255()
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = r, g, bl, 255
	}
	return out, pl
}
