// Package ascii renders a sketch as a box-drawing character diagram.
//
// Each grid column maps to four characters and each grid row to two. Lines
// that cross merge into '+' junctions. Loose strokes that together outline a
// rectangle are rebuilt into one before drawing, and every render ends with a
// fixed-width summary table of the drawn elements.
package ascii
