package export

import (
	"math"
	"sort"
	"strconv"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/layout"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// Toolkit is the GUI toolkit every tk export targets.
const Toolkit = "tkinter"

// gutter is the padding, in pixels, between grid cells.
const gutter = 8

// GridCell places a widget on the tk grid geometry manager.
type GridCell struct {
	Row        int    `json:"row"`
	Column     int    `json:"column"`
	RowSpan    int    `json:"rowspan"`
	ColumnSpan int    `json:"columnspan"`
	Sticky     string `json:"sticky"`
}

// GridWidget is a container placed on the tk grid.
type GridWidget struct {
	ID   string   `json:"id"`
	Type string   `json:"type"`
	Grid GridCell `json:"grid"`
	Hint string   `json:"hint"`
}

// Weights marks which rows and columns stretch. Keys are indexes.
type Weights struct {
	Rows map[string]int `json:"rows"`
	Cols map[string]int `json:"cols"`
}

// Gutters is the padding between cells.
type Gutters struct {
	PadX int `json:"padx"`
	PadY int `json:"pady"`
}

// GridSpec describes the tk grid.
type GridSpec struct {
	Rows    int     `json:"rows"`
	Cols    int     `json:"cols"`
	Weights Weights `json:"weights"`
	Gutters Gutters `json:"gutters"`
}

// GridLayout is the layout section of a TkGridDocument.
type GridLayout struct {
	Mode string   `json:"mode"`
	Grid GridSpec `json:"grid"`
}

// TkGridDocument is the grid geometry manager export.
type TkGridDocument struct {
	Toolkit string       `json:"toolkit"`
	Layout  GridLayout   `json:"layout"`
	Widgets []GridWidget `json:"widgets"`
}

// TkGrid maps every rectangle onto grid cells. Each row and column of the
// grid covered by some rectangle gets weight 1.
func TkGrid(shapes []sketch.Shape, g geometry.Grid) TkGridDocument {
	rects := sketch.Rects(shapes)
	widgets := make([]GridWidget, 0, len(rects))
	weights := Weights{Rows: map[string]int{}, Cols: map[string]int{}}

	for _, r := range rects {
		bb := geometry.ToGridBBox(r.Bounds(), g)
		widgets = append(widgets, GridWidget{
			ID:   r.ID,
			Type: "container",
			Grid: GridCell{Row: bb.Y, Column: bb.X, RowSpan: bb.H, ColumnSpan: bb.W, Sticky: "nsew"},
			Hint: r.Label,
		})
		// Only cells inside the grid carry weight.
		for y := max(0, bb.Y); y < min(g.Rows, bb.Y+bb.H); y++ {
			weights.Rows[strconv.Itoa(y)] = 1
		}
		for x := max(0, bb.X); x < min(g.Cols, bb.X+bb.W); x++ {
			weights.Cols[strconv.Itoa(x)] = 1
		}
	}

	return TkGridDocument{
		Toolkit: Toolkit,
		Layout: GridLayout{
			Mode: "grid",
			Grid: GridSpec{
				Rows:    g.Rows,
				Cols:    g.Cols,
				Weights: weights,
				Gutters: Gutters{PadX: gutter, PadY: gutter},
			},
		},
		Widgets: widgets,
	}
}

// Place holds fractional coordinates for the tk place geometry manager.
type Place struct {
	RelX      float64 `json:"relx"`
	RelY      float64 `json:"rely"`
	RelWidth  float64 `json:"relwidth"`
	RelHeight float64 `json:"relheight"`
}

// PlaceWidget is a container positioned with place.
type PlaceWidget struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Place Place  `json:"place"`
	Hint  string `json:"hint"`
}

// PlaceLayout is the layout section of a TkPlaceDocument.
type PlaceLayout struct {
	Mode string `json:"mode"`
}

// TkPlaceDocument is the place geometry manager export.
type TkPlaceDocument struct {
	Toolkit string        `json:"toolkit"`
	Layout  PlaceLayout   `json:"layout"`
	Widgets []PlaceWidget `json:"widgets"`
}

// TkPlace positions every rectangle by its share of the grid.
func TkPlace(shapes []sketch.Shape, g geometry.Grid) TkPlaceDocument {
	rects := sketch.Rects(shapes)
	widgets := make([]PlaceWidget, 0, len(rects))
	cols, rows := float64(max(1, g.Cols)), float64(max(1, g.Rows))

	for _, r := range rects {
		bb := geometry.ToGridBBox(r.Bounds(), g)
		widgets = append(widgets, PlaceWidget{
			ID:   r.ID,
			Type: "container",
			Place: Place{
				RelX:      float64(bb.X) / cols,
				RelY:      float64(bb.Y) / rows,
				RelWidth:  float64(bb.W) / cols,
				RelHeight: float64(bb.H) / rows,
			},
			Hint: r.Label,
		})
	}

	return TkPlaceDocument{Toolkit: Toolkit, Layout: PlaceLayout{Mode: "place"}, Widgets: widgets}
}

// Pane is one child of a paned window.
type Pane struct {
	ID      string   `json:"id"`
	Percent int      `json:"percent"`
	Hint    string   `json:"hint"`
	Inner   *Element `json:"inner,omitempty"`
}

// Element is a node of the hybrid layout: a paned window or a leaf.
type Element struct {
	Mode   string             `json:"mode"`
	Orient layout.Orientation `json:"orient,omitempty"`
	Panes  []Pane             `json:"panes,omitempty"`
	ID     string             `json:"id,omitempty"`
	Hint   *string            `json:"hint,omitempty"`
}

// TkHybridDocument is the nested paned-window export.
type TkHybridDocument struct {
	Toolkit string  `json:"toolkit"`
	Layout  Element `json:"layout"`
}

// TkHybrid turns the containment tree into nested paned windows. Each node
// with children becomes a paned window oriented by InferOrientation
// (vertical when undecided); each pane's percent is its share of the grid
// along that axis, normalised so siblings sum to exactly 100.
func TkHybrid(shapes []sketch.Shape, g geometry.Grid) TkHybridDocument {
	tree := layout.BuildContainmentTree(shapes, g)
	return TkHybridDocument{Toolkit: Toolkit, Layout: hybridElement(tree, tree.Root, g)}
}

func hybridElement(t *layout.Tree, idx int, g geometry.Grid) Element {
	n := t.Node(idx)
	if len(n.Children) == 0 {
		hint := n.Label
		return Element{Mode: "leaf", ID: n.ID, Hint: &hint}
	}

	orient, ok := layout.InferOrientation(t, idx)
	if !ok {
		orient = layout.Vertical
	}

	raw := make([]int, len(n.Children))
	for i, c := range n.Children {
		bb := t.Node(c).BBox
		size, total := bb.W, g.Cols
		if orient == layout.Vertical {
			size, total = bb.H, g.Rows
		}
		raw[i] = max(1, int(math.Round(float64(size)/float64(max(1, total))*100)))
	}
	pct := normalizePercents(raw)

	panes := make([]Pane, len(n.Children))
	for i, c := range n.Children {
		child := t.Node(c)
		panes[i] = Pane{ID: child.ID, Percent: pct[i], Hint: child.Label}
		if len(child.Children) > 0 {
			inner := hybridElement(t, c, g)
			panes[i].Inner = &inner
		}
	}
	return Element{Mode: "paned", Orient: orient, Panes: panes}
}

// normalizePercents scales positive weights so they sum to 100 with every
// entry at least 1. Rounding residue is settled on the largest entries
// first. More than 100 entries cannot fit; each then gets 1.
func normalizePercents(raw []int) []int {
	out := make([]int, len(raw))
	if len(raw) == 0 {
		return out
	}
	sum := 0
	for _, v := range raw {
		sum += v
	}
	sum = max(1, sum)

	total := 0
	for i, v := range raw {
		out[i] = max(1, int(math.Round(float64(v)*100/float64(sum))))
		total += out[i]
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return out[order[a]] > out[order[b]] })

	for diff := 100 - total; diff != 0; {
		moved := false
		for _, i := range order {
			if diff == 0 {
				break
			}
			if diff > 0 {
				out[i]++
				diff--
				moved = true
			} else if out[i] > 1 {
				out[i]--
				diff++
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	return out
}
