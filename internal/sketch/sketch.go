package sketch

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
)

const (
	DefaultCols    = 12
	DefaultRows    = 12
	DefaultCanvasW = 1200
	DefaultCanvasH = 800
)

var (
	ErrShapeNotFound = errors.New("shape not found")
	ErrEmptyText     = errors.New("text is empty")
	ErrEmptyPath     = errors.New("path has no points")
)

// DefaultGrid returns the grid a new sketch starts with.
func DefaultGrid() geometry.Grid {
	return geometry.Grid{
		Cols:    DefaultCols,
		Rows:    DefaultRows,
		CanvasW: DefaultCanvasW,
		CanvasH: DefaultCanvasH,
		Snap:    true,
	}
}

// Sketch is the mutable, in-memory shape collection a user edits. It is safe
// for concurrent use.
type Sketch struct {
	mu     sync.RWMutex
	grid   geometry.Grid
	shapes []Shape
}

// New returns an empty sketch over grid g. Columns and rows are clamped.
func New(g geometry.Grid) *Sketch {
	return &Sketch{grid: g.Clamp()}
}

// Grid returns the current layout grid.
func (s *Sketch) Grid() geometry.Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid
}

// SetGrid replaces the layout grid. Shapes keep their pixel coordinates.
func (s *Sketch) SetGrid(g geometry.Grid) {
	s.mu.Lock()
	s.grid = g.Clamp()
	s.mu.Unlock()
}

// Shapes returns a snapshot of all shapes in insertion order.
func (s *Sketch) Shapes() []Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Shape, len(s.shapes))
	copy(out, s.shapes)
	return out
}

// Len returns the number of shapes.
func (s *Sketch) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shapes)
}

// AddRect adds a rectangle spanning r. Negative extents are normalised and,
// when snapping is on, both corners snap to the grid. An empty label becomes
// "box#N" where N counts the rectangles including the new one.
func (s *Sketch) AddRect(r geometry.Rect, label string) Rect {
	s.mu.Lock()
	defer s.mu.Unlock()

	r = geometry.NormalizeRect(r)
	if s.grid.Snap {
		p0 := geometry.SnapToGrid(geometry.Point{X: r.X, Y: r.Y}, s.grid)
		p1 := geometry.SnapToGrid(geometry.Point{X: r.X + r.W, Y: r.Y + r.H}, s.grid)
		r = geometry.Rect{X: p0.X, Y: p0.Y, W: p1.X - p0.X, H: p1.Y - p0.Y}
	}
	if label == "" {
		label = fmt.Sprintf("box#%d", len(Rects(s.shapes))+1)
	}
	rect := Rect{ID: NewID(), X: r.X, Y: r.Y, W: r.W, H: r.H, Label: label}
	s.shapes = append(s.shapes, rect)
	return rect
}

// AddDetected adds rectangles found by detection verbatim, each labelled
// "auto#" followed by a short random suffix.
func (s *Sketch) AddDetected(boxes []geometry.Box) []Rect {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Rect, 0, len(boxes))
	for _, b := range boxes {
		id := NewID()
		rect := Rect{
			ID:    id,
			X:     float64(b.X),
			Y:     float64(b.Y),
			W:     float64(b.W),
			H:     float64(b.H),
			Label: "auto#" + strings.ReplaceAll(id, "-", "")[:4],
		}
		s.shapes = append(s.shapes, rect)
		out = append(out, rect)
	}
	return out
}

// AddPath adds a freehand stroke.
func (s *Sketch) AddPath(points []geometry.Point, label string) (Path, error) {
	if len(points) == 0 {
		return Path{}, ErrEmptyPath
	}
	pts := make([]geometry.Point, len(points))
	copy(pts, points)

	s.mu.Lock()
	defer s.mu.Unlock()
	p := Path{ID: NewID(), Points: pts, Label: label}
	s.shapes = append(s.shapes, p)
	return p, nil
}

// AddText places a text label with its top-left corner at p.
func (s *Sketch) AddText(p geometry.Point, text string) (Text, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Text{}, ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := Text{ID: NewID(), X: p.X, Y: p.Y, Text: text}
	s.shapes = append(s.shapes, t)
	return t, nil
}

// Rename changes the label of a rectangle or path, or the content of a text.
func (s *Sketch) Rename(id, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrShapeNotFound, id)
	}
	switch sh := s.shapes[i].(type) {
	case Rect:
		sh.Label = label
		s.shapes[i] = sh
	case Path:
		sh.Label = label
		s.shapes[i] = sh
	case Text:
		label = strings.TrimSpace(label)
		if label == "" {
			return ErrEmptyText
		}
		sh.Text = label
		s.shapes[i] = sh
	}
	return nil
}

// Move translates a shape by (dx, dy) pixels.
func (s *Sketch) Move(id string, dx, dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrShapeNotFound, id)
	}
	switch sh := s.shapes[i].(type) {
	case Rect:
		sh.X += dx
		sh.Y += dy
		s.shapes[i] = sh
	case Text:
		sh.X += dx
		sh.Y += dy
		s.shapes[i] = sh
	case Path:
		pts := make([]geometry.Point, len(sh.Points))
		for j, p := range sh.Points {
			pts[j] = geometry.Point{X: p.X + dx, Y: p.Y + dy}
		}
		sh.Points = pts
		s.shapes[i] = sh
	}
	return nil
}

// Delete removes a shape.
func (s *Sketch) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrShapeNotFound, id)
	}
	s.shapes = append(s.shapes[:i:i], s.shapes[i+1:]...)
	return nil
}

// Clear removes every shape. The grid is kept.
func (s *Sketch) Clear() {
	s.mu.Lock()
	s.shapes = nil
	s.mu.Unlock()
}

// Replace swaps the whole shape set, as when a document is loaded. A shape
// whose ID repeats an earlier one gets a fresh ID.
func (s *Sketch) Replace(g geometry.Grid, shapes []Shape) {
	cp := make([]Shape, len(shapes))
	seen := make(map[string]bool, len(shapes))
	for i, sh := range shapes {
		if seen[sh.ShapeID()] {
			sh = withID(sh, NewID())
		}
		seen[sh.ShapeID()] = true
		cp[i] = sh
	}

	s.mu.Lock()
	s.grid = g.Clamp()
	s.shapes = cp
	s.mu.Unlock()
}

func withID(sh Shape, id string) Shape {
	switch v := sh.(type) {
	case Rect:
		v.ID = id
		return v
	case Path:
		v.ID = id
		return v
	case Text:
		v.ID = id
		return v
	}
	return sh
}

func (s *Sketch) indexOf(id string) int {
	for i, sh := range s.shapes {
		if sh.ShapeID() == id {
			return i
		}
	}
	return -1
}
