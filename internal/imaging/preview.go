package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
)

// Preview is an encoded PNG rendering of the canvas.
type Preview struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePreview crops img to region, scales the result by scale and encodes
// it as a base64 PNG. An empty region means the whole image; a scale of 0 or
// 1 keeps the size.
func EncodePreview(img image.Image, region image.Rectangle, scale float64) (*Preview, error) {
	bounds := img.Bounds()
	if region.Empty() {
		region = bounds
	}
	if !region.In(bounds) {
		return nil, fmt.Errorf("preview region (%d,%d)-(%d,%d) outside canvas (%d,%d)-(%d,%d)",
			region.Min.X, region.Min.Y, region.Max.X, region.Max.Y,
			bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if scale < 0 {
		return nil, fmt.Errorf("scale must not be negative, got %g", scale)
	}

	out := imaging.Crop(img, region)
	if scale != 0 && scale != 1 {
		w := max(1, int(float64(out.Bounds().Dx())*scale))
		h := max(1, int(float64(out.Bounds().Dy())*scale))
		out = imaging.Resize(out, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return &Preview{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Overlay is what DrawOverlay paints over a canvas-sized image.
type Overlay struct {
	// Grid draws the cell boundaries when Cols and Rows are set.
	Grid geometry.Grid

	// Labels numbers the columns along the top edge and the rows along the
	// left edge.
	Labels bool

	Rects []geometry.Rect
	Paths [][]geometry.Point

	GridColor  color.NRGBA
	ShapeColor color.NRGBA
}

var (
	defaultGridColor  = color.NRGBA{R: 255, G: 0, B: 0, A: 96}
	defaultShapeColor = color.NRGBA{R: 0, G: 90, B: 220, A: 255}
)

// DrawOverlay paints the grid and the shape outlines of o onto dst. Shapes
// are in canvas pixels, which are dst pixels.
func DrawOverlay(dst *image.NRGBA, o Overlay) {
	if o.GridColor == (color.NRGBA{}) {
		o.GridColor = defaultGridColor
	}
	if o.ShapeColor == (color.NRGBA{}) {
		o.ShapeColor = defaultShapeColor
	}
	b := dst.Bounds()

	if o.Grid.Cols > 0 && o.Grid.Rows > 0 {
		cw, ch := o.Grid.CellW(), o.Grid.CellH()
		for i := 1; i < o.Grid.Cols; i++ {
			x := int(math.Round(float64(i) * cw))
			line(dst, x, b.Min.Y, x, b.Max.Y-1, o.GridColor)
		}
		for j := 1; j < o.Grid.Rows; j++ {
			y := int(math.Round(float64(j) * ch))
			line(dst, b.Min.X, y, b.Max.X-1, y, o.GridColor)
		}
		if o.Labels {
			fg := color.NRGBA{255, 255, 255, 255}
			bg := color.NRGBA{0, 0, 0, 180}
			for i := 0; i < o.Grid.Cols; i++ {
				drawLabel(dst, int(math.Round(float64(i)*cw))+2, 2, strconv.Itoa(i), fg, bg)
			}
			for j := 1; j < o.Grid.Rows; j++ {
				drawLabel(dst, 2, int(math.Round(float64(j)*ch))+2, strconv.Itoa(j), fg, bg)
			}
		}
	}

	for _, r := range o.Rects {
		r = geometry.NormalizeRect(r)
		x0, y0 := px(r.X), px(r.Y)
		x1, y1 := px(r.X+r.W)-1, px(r.Y+r.H)-1
		line(dst, x0, y0, x1, y0, o.ShapeColor)
		line(dst, x1, y0, x1, y1, o.ShapeColor)
		line(dst, x1, y1, x0, y1, o.ShapeColor)
		line(dst, x0, y1, x0, y0, o.ShapeColor)
	}

	for _, pts := range o.Paths {
		for i := 1; i < len(pts); i++ {
			line(dst, px(pts[i-1].X), px(pts[i-1].Y), px(pts[i].X), px(pts[i].Y), o.ShapeColor)
		}
	}
}

// maxCoord bounds pixel coordinates so that conversions stay defined and
// differences of two coordinates cannot overflow.
const maxCoord = 1 << 30

// px rounds a canvas coordinate to a pixel, saturating at ±maxCoord.
func px(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > maxCoord:
		return maxCoord
	case v < -maxCoord:
		return -maxCoord
	}
	return int(math.Round(v))
}

// line draws a Bresenham line, blending c over dst. The segment is clipped
// to the bounds of dst first, so only visible pixels are stepped through.
func line(dst *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	var ok bool
	if x0, y0, x1, y1, ok = clipSegment(dst.Bounds(), x0, y0, x1, y1); !ok {
		return
	}
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		blend(dst, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// clipSegment cuts the segment (x0,y0)-(x1,y1) to the pixels of b using
// Liang-Barsky. ok is false when no part of it lies inside.
func clipSegment(b image.Rectangle, x0, y0, x1, y1 int) (cx0, cy0, cx1, cy1 int, ok bool) {
	if b.Empty() {
		return 0, 0, 0, 0, false
	}
	fx0, fy0 := float64(x0), float64(y0)
	dx, dy := float64(x1-x0), float64(y1-y0)
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, fx0 - float64(b.Min.X)},
		{dx, float64(b.Max.X-1) - fx0},
		{-dy, fy0 - float64(b.Min.Y)},
		{dy, float64(b.Max.Y-1) - fy0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
	}
	if t0 > t1 {
		return 0, 0, 0, 0, false
	}
	cx0 = clampInt(int(math.Round(fx0+t0*dx)), b.Min.X, b.Max.X-1)
	cy0 = clampInt(int(math.Round(fy0+t0*dy)), b.Min.Y, b.Max.Y-1)
	cx1 = clampInt(int(math.Round(fx0+t1*dx)), b.Min.X, b.Max.X-1)
	cy1 = clampInt(int(math.Round(fy0+t1*dy)), b.Min.Y, b.Max.Y-1)
	return cx0, cy0, cx1, cy1, true
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func blend(dst *image.NRGBA, x, y int, c color.NRGBA) {
	if !image.Pt(x, y).In(dst.Bounds()) {
		return
	}
	i := dst.PixOffset(x, y)
	a := uint32(c.A)
	p := dst.Pix[i : i+4 : i+4]
	p[0] = uint8((uint32(c.R)*a + uint32(p[0])*(255-a)) / 255)
	p[1] = uint8((uint32(c.G)*a + uint32(p[1])*(255-a)) / 255)
	p[2] = uint8((uint32(c.B)*a + uint32(p[2])*(255-a)) / 255)
	p[3] = 255
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// glyphs is a 3x5 pixel font for the grid indices.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
}

// drawLabel draws text with its top-left corner at (x, y) on a filled
// background box.
func drawLabel(dst *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	const charWidth, labelHeight = 4, 7

	for dy := -1; dy < labelHeight-1; dy++ {
		for dx := -1; dx < len(text)*charWidth; dx++ {
			blend(dst, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		for row, bits := range glyphs[ch] {
			for col, bit := range bits {
				if bit == '1' {
					blend(dst, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
