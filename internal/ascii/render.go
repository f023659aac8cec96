package ascii

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// summaryWidth is the width of the summary table in columns.
const summaryWidth = 62

// Render draws shapes as ASCII art followed by a blank line and the summary
// table.
//
// Sketched rectangles and rectangles rebuilt from four strokes are drawn
// first, then the strokes left over. Unnamed rectangles borrow the text that
// sits inside them. Output depends only on the shapes and the grid.
func Render(shapes []sketch.Shape, g geometry.Grid) string {
	canvas := NewCanvas(g.Cols, g.Rows)

	var rects []RectEntry
	for _, r := range sketch.Rects(shapes) {
		label := r.Label
		if label == "" {
			label = DefaultRectLabel
		}
		rects = append(rects, RectEntry{Label: label, BBox: geometry.ToGridBBox(r.Bounds(), g)})
	}

	rebuilt, remaining := ReconstructRectangles(PathEntries(shapes, g))
	rects = append(rects, rebuilt...)
	AssignLabels(rects, sketch.Texts(shapes), g)

	for _, r := range rects {
		canvas.DrawRect(r.BBox, r.Label)
	}
	for _, p := range remaining {
		canvas.DrawPath(p)
	}

	return canvas.String() + "\n\n" + Summary(rects, remaining, g)
}

// Summary lists every drawn element, top to bottom then left to right, with
// its height and width as a share of the grid.
func Summary(rects []RectEntry, paths []PathEntry, g geometry.Grid) string {
	type entry struct {
		kind  string
		label string
		bb    geometry.GridBBox
	}
	entries := make([]entry, 0, len(rects)+len(paths))
	for _, r := range rects {
		entries = append(entries, entry{kind: "rect", label: r.Label, bb: r.BBox})
	}
	for _, p := range paths {
		entries = append(entries, entry{kind: "line", label: p.Label, bb: p.BBox})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].bb.Y != entries[j].bb.Y {
			return entries[i].bb.Y < entries[j].bb.Y
		}
		return entries[i].bb.X < entries[j].bb.X
	})

	sep := "+" + strings.Repeat("-", summaryWidth-2) + "+"
	lines := []string{
		sep,
		centerLine(fmt.Sprintf(" SKETCH ASCII (%d elements) ", len(entries))),
		sep,
	}
	for i, e := range entries {
		line := fmt.Sprintf("| %02d -> %s %s  [h:%d%% w:%d%%]",
			i+1, e.kind, e.label, percent(e.bb.H, g.Rows), percent(e.bb.W, g.Cols))
		line = runewidth.Truncate(line, summaryWidth-1, "")
		lines = append(lines, runewidth.FillRight(line, summaryWidth-1)+"|")
	}
	lines = append(lines, sep)
	return strings.Join(lines, "\n")
}

func centerLine(text string) string {
	inside := summaryWidth - 2
	text = runewidth.Truncate(text, inside, "")
	left := (inside - runewidth.StringWidth(text)) / 2
	right := inside - runewidth.StringWidth(text) - left
	return "|" + strings.Repeat(" ", left) + text + strings.Repeat(" ", right) + "|"
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
