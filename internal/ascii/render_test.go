package ascii

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

func stroke(id string, pts ...geometry.Point) sketch.Path {
	return sketch.Path{ID: id, Points: pts}
}

func fourStrokes() []sketch.Shape {
	return []sketch.Shape{
		stroke("top", geometry.Point{X: 0, Y: 0}, geometry.Point{X: 100, Y: 0}),
		stroke("bottom", geometry.Point{X: 0, Y: 50}, geometry.Point{X: 100, Y: 50}),
		stroke("left", geometry.Point{X: 0, Y: 0}, geometry.Point{X: 0, Y: 50}),
		stroke("right", geometry.Point{X: 100, Y: 0}, geometry.Point{X: 100, Y: 50}),
	}
}

func grid40() geometry.Grid {
	return geometry.Grid{Cols: 40, Rows: 40, CanvasW: 400, CanvasH: 400}
}

func TestPathEntries(t *testing.T) {
	entries := PathEntries(fourStrokes(), grid40())
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	want := []struct {
		label  string
		orient Orientation
		bb     geometry.GridBBox
	}{
		{"stroke#01", Horizontal, geometry.GridBBox{X: 0, Y: 0, W: 10, H: 1}},
		{"stroke#02", Horizontal, geometry.GridBBox{X: 0, Y: 5, W: 10, H: 1}},
		{"stroke#03", Vertical, geometry.GridBBox{X: 0, Y: 0, W: 1, H: 5}},
		{"stroke#04", Vertical, geometry.GridBBox{X: 10, Y: 0, W: 1, H: 5}},
	}
	for i, w := range want {
		e := entries[i]
		if e.Label != w.label || e.Orientation != w.orient || e.BBox != w.bb {
			t.Errorf("entry %d = %+v, want %+v", i, e, w)
		}
	}
}

func TestReconstructFourStrokes(t *testing.T) {
	rects, remaining := ReconstructRectangles(PathEntries(fourStrokes(), grid40()))
	if len(rects) != 1 {
		t.Fatalf("got %d rectangles, want 1", len(rects))
	}
	if len(remaining) != 0 {
		t.Fatalf("got %d leftover strokes, want 0", len(remaining))
	}
	want := geometry.GridBBox{X: 0, Y: 0, W: 11, H: 6}
	if rects[0].BBox != want {
		t.Errorf("rebuilt bbox = %+v, want %+v", rects[0].BBox, want)
	}
}

func TestReconstructMissingWall(t *testing.T) {
	shapes := fourStrokes()[:3]
	rects, remaining := ReconstructRectangles(PathEntries(shapes, grid40()))
	if len(rects) != 0 || len(remaining) != 3 {
		t.Errorf("got %d rects and %d strokes, want 0 and 3", len(rects), len(remaining))
	}
}

func TestAssignLabels(t *testing.T) {
	rects := []RectEntry{
		{Label: "", BBox: geometry.GridBBox{X: 0, Y: 0, W: 11, H: 6}},
		{Label: "Block", BBox: geometry.GridBBox{X: 20, Y: 20, W: 4, H: 4}},
		{Label: "named", BBox: geometry.GridBBox{X: 0, Y: 0, W: 40, H: 40}},
	}
	texts := []sketch.Text{
		{ID: "a", X: 20, Y: 20, Text: " Login "},
		{ID: "b", X: 215, Y: 215, Text: "hero"},
	}
	AssignLabels(rects, texts, grid40())

	if rects[0].Label != "Login" {
		t.Errorf("rect 0 label = %q, want Login", rects[0].Label)
	}
	if rects[1].Label != "hero" {
		t.Errorf("rect 1 label = %q, want hero", rects[1].Label)
	}
	if rects[2].Label != "named" {
		t.Errorf("rect 2 label = %q, want named", rects[2].Label)
	}
}

func TestSummary(t *testing.T) {
	g := geometry.Grid{Cols: 4, Rows: 4}
	rects := []RectEntry{
		{Label: "body", BBox: geometry.GridBBox{X: 0, Y: 2, W: 4, H: 2}},
		{Label: "nav", BBox: geometry.GridBBox{X: 0, Y: 0, W: 2, H: 1}},
	}
	paths := []PathEntry{{Label: "stroke#01", BBox: geometry.GridBBox{X: 2, Y: 0, W: 2, H: 1}}}

	lines := strings.Split(Summary(rects, paths, g), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines, want 7:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	for i, l := range lines {
		if n := utf8.RuneCountInString(l); n != summaryWidth {
			t.Errorf("line %d is %d wide, want %d: %q", i, n, summaryWidth, l)
		}
	}
	if !strings.Contains(lines[1], " SKETCH ASCII (3 elements) ") {
		t.Errorf("header = %q", lines[1])
	}
	wantRows := []string{
		"| 01 -> rect nav  [h:25% w:50%]",
		"| 02 -> line stroke#01  [h:25% w:50%]",
		"| 03 -> rect body  [h:50% w:100%]",
	}
	for i, w := range wantRows {
		if !strings.HasPrefix(lines[3+i], w) {
			t.Errorf("row %d = %q, want prefix %q", i, lines[3+i], w)
		}
	}
}

func TestSummaryLongLabelKeepsWidth(t *testing.T) {
	g := geometry.Grid{Cols: 4, Rows: 4}
	rects := []RectEntry{{Label: strings.Repeat("x", 100), BBox: geometry.GridBBox{W: 1, H: 1}}}
	lines := strings.Split(Summary(rects, nil, g), "\n")
	if n := utf8.RuneCountInString(lines[3]); n != summaryWidth {
		t.Errorf("row is %d wide, want %d", n, summaryWidth)
	}
}

func TestRender(t *testing.T) {
	g := geometry.Grid{Cols: 2, Rows: 2, CanvasW: 200, CanvasH: 200}
	shapes := []sketch.Shape{
		sketch.Rect{ID: "r", X: 0, Y: 0, W: 200, H: 100, Label: "nav"},
	}
	out := Render(shapes, g)

	wantDiagram := "+-------+\n" +
		"|- nav -|\n" +
		"+-------+\n\n"
	if !strings.HasPrefix(out, wantDiagram) {
		t.Errorf("Render =\n%s\nwant prefix\n%s", out, wantDiagram)
	}
	if !strings.Contains(out, "| 01 -> rect nav  [h:50% w:100%]") {
		t.Errorf("summary row missing:\n%s", out)
	}
}

func TestRenderDefaultLabelAndStrokes(t *testing.T) {
	shapes := append(fourStrokes(),
		sketch.Rect{ID: "r", X: 200, Y: 200, W: 100, H: 100},
		sketch.Text{ID: "t", X: 20, Y: 20, Text: "card"},
	)
	out := Render(shapes, grid40())
	if !strings.Contains(out, "rect card") {
		t.Errorf("rebuilt rectangle did not take the text label:\n%s", out)
	}
	if !strings.Contains(out, "rect block") {
		t.Errorf("unlabelled rectangle missing default label:\n%s", out)
	}
	if !strings.Contains(out, "(2 elements)") {
		t.Errorf("unexpected element count:\n%s", out)
	}
}

func TestRenderDeterministic(t *testing.T) {
	shapes := append(fourStrokes(),
		sketch.Rect{ID: "a", X: 10, Y: 10, W: 300, H: 200, Label: "outer"},
		sketch.Rect{ID: "b", X: 50, Y: 50, W: 100, H: 80, Label: "inner"},
		stroke("diag", geometry.Point{X: 200, Y: 200}, geometry.Point{X: 260, Y: 250}),
	)
	first := Render(shapes, grid40())
	for i := 0; i < 5; i++ {
		if got := Render(shapes, grid40()); got != first {
			t.Fatalf("render %d differs from the first", i)
		}
	}
}
