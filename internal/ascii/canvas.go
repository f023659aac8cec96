package ascii

import (
	"math"
	"strings"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
)

const (
	// cellWidth and cellHeight are the characters per grid column and row.
	cellWidth  = 4
	cellHeight = 2
)

// Canvas is a fixed-size character grid sized from a layout grid: each
// column is four characters wide and each row two characters tall, plus one
// closing line on each axis.
type Canvas struct {
	Cols   int
	Rows   int
	Width  int
	Height int
	cells  [][]rune
}

// NewCanvas returns a blank canvas for a cols x rows grid.
func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{
		Cols:   cols,
		Rows:   rows,
		Width:  cols*cellWidth + 1,
		Height: rows*cellHeight + 1,
	}
	c.cells = make([][]rune, c.Height)
	for y := range c.cells {
		row := make([]rune, c.Width)
		for x := range row {
			row[x] = ' '
		}
		c.cells[y] = row
	}
	return c
}

// At returns the character at row y, column x, or a space when out of range.
func (c *Canvas) At(y, x int) rune {
	if y < 0 || x < 0 || y >= c.Height || x >= c.Width {
		return ' '
	}
	return c.cells[y][x]
}

// Set writes ch at row y, column x. Out-of-range writes are dropped.
//
// Without force, lines merge: a blank cell takes ch, a horizontal and a
// vertical line crossing become '+', and a line meeting a '+' stays '+'.
// Any other collision keeps the existing character.
func (c *Canvas) Set(y, x int, ch rune, force bool) {
	if y < 0 || x < 0 || y >= c.Height || x >= c.Width {
		return
	}
	cur := c.cells[y][x]
	switch {
	case force, cur == ' ':
		c.cells[y][x] = ch
	case cur == ch:
	case isLine(cur) && isLine(ch):
		c.cells[y][x] = '+'
	case cur == '+' && isLine(ch), ch == '+' && isLine(cur):
		c.cells[y][x] = '+'
	}
}

func isLine(ch rune) bool {
	return ch == '-' || ch == '|'
}

// DrawRect outlines a grid bbox with '-', '|' and '+' corners and centres
// label on its first interior row, between a dash at each side.
// Boxes narrower or shorter than two characters are skipped.
func (c *Canvas) DrawRect(bb geometry.GridBBox, label string) {
	left := max(0, bb.X*cellWidth)
	right := min(c.Width-1, (bb.X+bb.W)*cellWidth)
	top := max(0, bb.Y*cellHeight)
	bottom := min(c.Height-1, (bb.Y+bb.H)*cellHeight)
	if right-left < 2 || bottom-top < 2 {
		return
	}

	for x := left + 1; x < right; x++ {
		c.Set(top, x, '-', false)
		c.Set(bottom, x, '-', false)
	}
	for y := top + 1; y < bottom; y++ {
		c.Set(y, left, '|', false)
		c.Set(y, right, '|', false)
	}
	c.Set(top, left, '+', true)
	c.Set(top, right, '+', true)
	c.Set(bottom, left, '+', true)
	c.Set(bottom, right, '+', true)

	c.drawLabel(left, right, min(bottom-1, top+1), label)
}

// drawLabel centres " label " on row between the dash markers at left+1 and
// right-1. Only the label's own characters are written, so borders of boxes
// nested underneath stay visible through the padding.
func (c *Canvas) drawLabel(left, right, row int, label string) {
	text := []rune(strings.TrimSpace(label))
	if n := max(0, right-left-2); len(text) > n {
		text = text[:n]
	}
	if len(text) == 0 {
		return
	}
	pattern := append(append([]rune{' '}, text...), ' ')
	width := right - left - 1
	start := left + 1
	if len(pattern) < width {
		start = left + (width-len(pattern))/2 + 1
	}

	for x := start; x < right; x++ {
		if x == left+1 || x == right-1 {
			c.Set(row, x, '-', true)
			continue
		}
		if i := x - start; i < len(pattern) && pattern[i] != ' ' {
			c.Set(row, x, pattern[i], true)
		}
	}
	c.Set(row, left+1, '-', false)
	c.Set(row, right-1, '-', false)
}

// DrawPath draws a stroke as its midline. Horizontal strokes get '|' end
// caps and vertical strokes '+' end caps; mixed strokes are drawn as an
// unlabelled box.
func (c *Canvas) DrawPath(e PathEntry) {
	bb := e.BBox
	switch e.Orientation {
	case Horizontal:
		mid := clamp(int(math.Round(float64(bb.Y)+float64(bb.H)/2)), 0, c.Rows-1)
		y := clamp(mid*cellHeight+1, 0, c.Height-1)
		x0 := max(0, bb.X*cellWidth)
		x1 := min(c.Width-1, (bb.X+bb.W)*cellWidth)
		for x := x0; x <= x1; x++ {
			c.Set(y, x, '-', false)
		}
		c.Set(y, x0, '|', true)
		c.Set(y, x1, '|', true)
	case Vertical:
		mid := clamp(int(math.Round(float64(bb.X)+float64(bb.W)/2)), 0, c.Cols-1)
		x := clamp(mid*cellWidth+2, 0, c.Width-1)
		y0 := max(0, bb.Y*cellHeight)
		y1 := min(c.Height-1, (bb.Y+bb.H)*cellHeight)
		for y := y0; y <= y1; y++ {
			c.Set(y, x, '|', false)
		}
		c.Set(y0, x, '+', true)
		c.Set(y1, x, '+', true)
	default:
		c.DrawRect(bb, "")
	}
}

// String returns the canvas with trailing spaces trimmed from every line and
// trailing blank lines removed.
func (c *Canvas) String() string {
	var b strings.Builder
	for i, row := range c.cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRight(string(row), " "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
