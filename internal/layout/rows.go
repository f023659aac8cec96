package layout

import (
	"sort"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// rowTolerance is the largest Y distance, in cells, between a rectangle and
// a row it joins.
const rowTolerance = 1

// Column is one widget slot in a row.
type Column struct {
	Type     string `json:"type"`
	Index    int    `json:"index"`
	Span     int    `json:"span"`
	WidgetID string `json:"widgetId"`
}

// Row is a horizontal band of widgets.
type Row struct {
	Type    string   `json:"type"`
	Index   int      `json:"index"`
	Columns []Column `json:"columns"`
}

// RowsLayout is the flat rows-first reading of a sketch.
type RowsLayout struct {
	Strategy string `json:"strategy"`
	Rows     []Row  `json:"rows"`
}

// InferRows buckets rectangles into rows by their grid Y coordinate.
//
// Rectangles are visited top to bottom, then left to right. A rectangle
// joins the first row whose Y is within one cell of its own, pulling the
// row's Y up to the smaller of the two; otherwise it opens a new row. Each
// row lists its rectangles left to right with their width as the column span.
func InferRows(shapes []sketch.Shape, g geometry.Grid) RowsLayout {
	type item struct {
		id string
		bb geometry.GridBBox
	}
	rects := sketch.Rects(shapes)
	items := make([]item, len(rects))
	for i, r := range rects {
		items[i] = item{id: r.ID, bb: geometry.ToGridBBox(r.Bounds(), g)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].bb.Y != items[j].bb.Y {
			return items[i].bb.Y < items[j].bb.Y
		}
		return items[i].bb.X < items[j].bb.X
	})

	type bucket struct {
		y     int
		items []item
	}
	var buckets []*bucket
	for _, it := range items {
		placed := false
		for _, b := range buckets {
			if abs(it.bb.Y-b.y) <= rowTolerance {
				b.items = append(b.items, it)
				b.y = min(b.y, it.bb.Y)
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, &bucket{y: it.bb.Y, items: []item{it}})
		}
	}

	out := RowsLayout{Strategy: "rows-first", Rows: make([]Row, 0, len(buckets))}
	for i, b := range buckets {
		sort.SliceStable(b.items, func(x, y int) bool {
			return b.items[x].bb.X < b.items[y].bb.X
		})
		row := Row{Type: "row", Index: i, Columns: make([]Column, 0, len(b.items))}
		for j, it := range b.items {
			row.Columns = append(row.Columns, Column{
				Type:     "col",
				Index:    j,
				Span:     it.bb.W,
				WidgetID: it.id,
			})
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
