package export

import (
	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/layout"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// Widget is one entry of the generic JSON export: a container rectangle or a
// text label. Strokes are not widgets.
type Widget struct {
	ID       string              `json:"id"`
	Kind     string              `json:"kind"`
	Label    string              `json:"label,omitempty"`
	BBox     *geometry.GridBBox  `json:"bbox,omitempty"`
	Text     string              `json:"text,omitempty"`
	Position *geometry.GridPoint `json:"position,omitempty"`
}

// Meta carries the grid a Document was computed on.
type Meta struct {
	Grid GridSize `json:"grid"`
}

// GridSize is the column and row count of the layout grid.
type GridSize struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// Document is the generic JSON export.
type Document struct {
	Meta       Meta                        `json:"meta"`
	Widgets    []Widget                    `json:"widgets"`
	Layout     layout.RowsLayout           `json:"layout"`
	Components map[string]layout.Component `json:"components"`
}

// JSON builds the generic export: widgets in sketch order, the rows-first
// layout and the component guess for every rectangle.
func JSON(shapes []sketch.Shape, g geometry.Grid) Document {
	widgets := make([]Widget, 0, len(shapes))
	for _, s := range shapes {
		switch v := s.(type) {
		case sketch.Rect:
			bb := geometry.ToGridBBox(v.Bounds(), g)
			label := v.Label
			if label == "" {
				label = "box"
			}
			widgets = append(widgets, Widget{ID: v.ID, Kind: "container", Label: label, BBox: &bb})
		case sketch.Text:
			pt := geometry.ToGridPoint(geometry.Point{X: v.X, Y: v.Y}, g)
			widgets = append(widgets, Widget{ID: v.ID, Kind: "text", Text: v.Text, Position: &pt})
		}
	}

	return Document{
		Meta:       Meta{Grid: GridSize{Cols: g.Cols, Rows: g.Rows}},
		Widgets:    widgets,
		Layout:     layout.InferRows(shapes, g),
		Components: layout.ClassifyComponents(shapes),
	}
}
