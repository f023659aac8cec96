package geometry

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	// MinGridSize and MaxGridSize bound the number of grid columns and rows.
	MinGridSize = 2
	MaxGridSize = 48

	// MaxCanvasSize is the largest canvas side, in pixels. Previews and
	// detection frames are allocated at canvas size.
	MaxCanvasSize = 8192
)

// ErrCanvasSize reports a canvas side outside (0, MaxCanvasSize].
var ErrCanvasSize = errors.New("canvas size out of range")

// Point is a location in canvas pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in canvas pixel space.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Box is an integer pixel rectangle, as produced by rectangle detection.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Area returns the box area in pixels.
func (b Box) Area() int {
	return b.W * b.H
}

// GridBBox is a rectangle in grid cells. W and H are always at least 1.
type GridBBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Area returns the bbox area in cells.
func (b GridBBox) Area() int {
	return b.W * b.H
}

// Contains reports whether b encloses o, edges included.
func (b GridBBox) Contains(o GridBBox) bool {
	return o.X >= b.X && o.Y >= b.Y &&
		o.X+o.W <= b.X+b.W && o.Y+o.H <= b.Y+b.H
}

// ContainsCell reports whether the cell (x, y) lies inside b, edges included.
func (b GridBBox) ContainsCell(x, y int) bool {
	return x >= b.X && x <= b.X+b.W && y >= b.Y && y <= b.Y+b.H
}

// Union returns the smallest bbox covering both b and o.
func (b GridBBox) Union(o GridBBox) GridBBox {
	x0 := min(b.X, o.X)
	y0 := min(b.Y, o.Y)
	x1 := max(b.X+b.W, o.X+o.W)
	y1 := max(b.Y+b.H, o.Y+o.H)
	return GridBBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// GridPoint is a cell coordinate on the layout grid.
type GridPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid describes the logical layout grid laid over a canvas of CanvasW x
// CanvasH pixels.
type Grid struct {
	Cols    int     `json:"cols"`
	Rows    int     `json:"rows"`
	CanvasW float64 `json:"-"`
	CanvasH float64 `json:"-"`
	Snap    bool    `json:"-"`
}

// Clamp returns g with Cols and Rows limited to [MinGridSize, MaxGridSize].
func (g Grid) Clamp() Grid {
	g.Cols = clampInt(g.Cols, MinGridSize, MaxGridSize)
	g.Rows = clampInt(g.Rows, MinGridSize, MaxGridSize)
	return g
}

// CheckCanvas reports whether both canvas sides lie in (0, MaxCanvasSize].
func (g Grid) CheckCanvas() error {
	ok := func(v float64) bool { return v > 0 && v <= MaxCanvasSize }
	if !ok(g.CanvasW) || !ok(g.CanvasH) {
		return fmt.Errorf("%w: %vx%v, each side must be in (0, %d]", ErrCanvasSize, g.CanvasW, g.CanvasH, MaxCanvasSize)
	}
	return nil
}

// CellW is the width of one grid column in pixels.
func (g Grid) CellW() float64 {
	if g.Cols <= 0 {
		return g.CanvasW
	}
	return g.CanvasW / float64(g.Cols)
}

// CellH is the height of one grid row in pixels.
func (g Grid) CellH() float64 {
	if g.Rows <= 0 {
		return g.CanvasH
	}
	return g.CanvasH / float64(g.Rows)
}

// NormalizeRect flips negative extents so that W and H are non-negative.
// A rectangle dragged up and to the left ends up with the same area and
// position as one dragged down and to the right.
func NormalizeRect(r Rect) Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// SnapToGrid rounds p to the nearest grid line. It is the identity when
// snapping is disabled.
func SnapToGrid(p Point, g Grid) Point {
	if !g.Snap {
		return p
	}
	cw, ch := g.CellW(), g.CellH()
	if cw <= 0 || ch <= 0 {
		return p
	}
	return Point{
		X: math.Round(p.X/cw) * cw,
		Y: math.Round(p.Y/ch) * ch,
	}
}

// ToGridBBox converts a pixel rectangle into grid cells. The origin is
// floored; the size is rounded and never drops below one cell.
func ToGridBBox(r Rect, g Grid) GridBBox {
	cw, ch := g.CellW(), g.CellH()
	if cw <= 0 || ch <= 0 {
		return GridBBox{W: 1, H: 1}
	}
	return GridBBox{
		X: cells(math.Floor(r.X / cw)),
		Y: cells(math.Floor(r.Y / ch)),
		W: max(1, cells(math.Round(r.W/cw))),
		H: max(1, cells(math.Round(r.H/ch))),
	}
}

// maxCells bounds cell coordinates so that float to int conversion is always
// defined and sums of two coordinates cannot overflow.
const maxCells = 1 << 30

// cells converts a cell count to int, saturating at ±maxCells.
func cells(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > maxCells:
		return maxCells
	case v < -maxCells:
		return -maxCells
	}
	return int(v)
}

// ToGridPoint returns the cell containing p.
func ToGridPoint(p Point, g Grid) GridPoint {
	cw, ch := g.CellW(), g.CellH()
	if cw <= 0 || ch <= 0 {
		return GridPoint{}
	}
	return GridPoint{
		X: cells(math.Floor(p.X / cw)),
		Y: cells(math.Floor(p.Y / ch)),
	}
}

// IoU returns the intersection-over-union of two boxes, in [0, 1].
// Disjoint boxes yield 0; the denominator never drops below 1.
func IoU(a, b Box) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.W, b.X+b.W)
	y2 := min(a.Y+a.H, b.Y+b.H)
	iw := max(0, x2-x1)
	ih := max(0, y2-y1)
	inter := iw * ih
	union := a.Area() + b.Area() - inter
	return float64(inter) / float64(max(1, union))
}

// MergeOverlaps collapses boxes whose IoU reaches thresh.
//
// Boxes are visited in (x, y) order. Each box grows the first already kept box
// it overlaps into their union; otherwise it is kept as is. The result is
// greedy and depends on visit order: a kept box that grows can start to
// overlap boxes it was compared against earlier. The input slice is not
// modified.
func MergeOverlaps(boxes []Box, thresh float64) []Box {
	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	out := make([]Box, 0, len(sorted))
	for _, b := range sorted {
		merged := false
		for i := range out {
			if IoU(out[i], b) >= thresh {
				x := min(out[i].X, b.X)
				y := min(out[i].Y, b.Y)
				x2 := max(out[i].X+out[i].W, b.X+b.W)
				y2 := max(out[i].Y+out[i].H, b.Y+b.H)
				out[i] = Box{X: x, Y: y, W: x2 - x, H: y2 - y}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, b)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
