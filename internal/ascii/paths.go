package ascii

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// Orientation classifies a stroke by its grid aspect ratio.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
	Mixed      Orientation = "mixed"
)

// DefaultRectLabel is the label of a rectangle nobody named.
const DefaultRectLabel = "block"

// alignTolerance is how far, in cells, stroke ends may miss each other and
// still form a rectangle.
const alignTolerance = 2

// PathEntry is a stroke reduced to its grid bounding box.
type PathEntry struct {
	Label       string
	BBox        geometry.GridBBox
	Orientation Orientation
	Index       int
}

// RectEntry is a rectangle to draw: sketched, or rebuilt from four strokes.
type RectEntry struct {
	Label string
	BBox  geometry.GridBBox
}

// PathEntries converts the strokes of shapes into grid entries. A stroke at
// least twice as wide as tall is horizontal, at least twice as tall as wide
// vertical, anything else mixed. Unlabelled strokes are named stroke#01,
// stroke#02, ... in sketch order.
func PathEntries(shapes []sketch.Shape, g geometry.Grid) []PathEntry {
	var out []PathEntry
	idx := 0
	for _, p := range sketch.Paths(shapes) {
		if len(p.Points) == 0 {
			continue
		}
		bb := geometry.ToGridBBox(p.Extents(), g)
		orient := Mixed
		switch {
		case bb.W >= bb.H*2:
			orient = Horizontal
		case bb.H >= bb.W*2:
			orient = Vertical
		}
		label := p.Label
		if label == "" {
			label = fmt.Sprintf("stroke#%02d", idx+1)
		}
		out = append(out, PathEntry{Label: label, BBox: bb, Orientation: orient, Index: idx})
		idx++
	}
	return out
}

type segment struct {
	index          int
	x1, x2, y1, y2 int
}

func toSegment(e PathEntry) segment {
	return segment{
		index: e.Index,
		x1:    e.BBox.X,
		x2:    e.BBox.X + e.BBox.W,
		y1:    e.BBox.Y,
		y2:    e.BBox.Y + e.BBox.H,
	}
}

func (s segment) centerX() float64 {
	return float64(s.x1+s.x2) / 2
}

// ReconstructRectangles looks for groups of four strokes that outline a
// rectangle: a top and a lower bottom horizontal with matching ends, and two
// distinct verticals sitting on those ends that reach from the top stroke to
// the bottom one. All comparisons allow a two-cell slack. Each stroke is used
// at most once; the first matching bottom for a top wins.
//
// Strokes that took part in a rectangle are removed from the returned
// remainder, which keeps the input order.
func ReconstructRectangles(entries []PathEntry) ([]RectEntry, []PathEntry) {
	var hs, vs []segment
	for _, e := range entries {
		switch e.Orientation {
		case Horizontal:
			hs = append(hs, toSegment(e))
		case Vertical:
			vs = append(vs, toSegment(e))
		}
	}
	sort.SliceStable(hs, func(i, j int) bool {
		if hs[i].y1 != hs[j].y1 {
			return hs[i].y1 < hs[j].y1
		}
		return hs[i].x1 < hs[j].x1
	})
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].x1 != vs[j].x1 {
			return vs[i].x1 < vs[j].x1
		}
		return vs[i].y1 < vs[j].y1
	})

	used := make(map[int]bool)
	findWall := func(edgeX int, top, bottom segment, exclude int) (segment, bool) {
		for _, v := range vs {
			if used[v.index] || v.index == exclude {
				continue
			}
			if absf(v.centerX()-float64(edgeX)) > alignTolerance {
				continue
			}
			if v.y1 > top.y1+alignTolerance || v.y2 < bottom.y2-alignTolerance {
				continue
			}
			return v, true
		}
		return segment{}, false
	}

	var rects []RectEntry
	for i, top := range hs {
		if used[top.index] {
			continue
		}
		for _, bottom := range hs[i+1:] {
			if used[bottom.index] || bottom.y1 <= top.y1 {
				continue
			}
			if abs(top.x1-bottom.x1) > alignTolerance || abs(top.x2-bottom.x2) > alignTolerance {
				continue
			}
			left, ok := findWall(top.x1, top, bottom, -1)
			if !ok {
				continue
			}
			right, ok := findWall(top.x2, top, bottom, left.index)
			if !ok {
				continue
			}

			x := min(top.x1, bottom.x1, left.x1, right.x1)
			y := min(top.y1, left.y1)
			w := max(top.x2, bottom.x2, left.x2, right.x2) - x
			h := max(bottom.y2, right.y2) - y
			rects = append(rects, RectEntry{
				BBox: geometry.GridBBox{X: x, Y: y, W: max(1, w), H: max(1, h)},
			})
			for _, idx := range []int{top.index, bottom.index, left.index, right.index} {
				used[idx] = true
			}
			break
		}
	}

	remaining := make([]PathEntry, 0, len(entries))
	for _, e := range entries {
		if !used[e.Index] {
			remaining = append(remaining, e)
		}
	}
	return rects, remaining
}

// AssignLabels names every unnamed rectangle (empty label or the default
// "block") after the first text whose grid cell falls inside it.
func AssignLabels(rects []RectEntry, texts []sketch.Text, g geometry.Grid) {
	type info struct {
		text string
		cell geometry.GridBBox
	}
	var infos []info
	for _, t := range texts {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		infos = append(infos, info{text: text, cell: geometry.ToGridBBox(geometry.Rect{X: t.X, Y: t.Y, W: 1, H: 1}, g)})
	}
	if len(infos) == 0 {
		return
	}
	for i := range rects {
		cur := strings.TrimSpace(rects[i].Label)
		if cur != "" && !strings.EqualFold(cur, DefaultRectLabel) {
			continue
		}
		for _, in := range infos {
			if rects[i].BBox.ContainsCell(in.cell.X, in.cell.Y) {
				rects[i].Label = in.text
				break
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
