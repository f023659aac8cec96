// Package export turns a sketch into its output formats: a generic JSON
// document, the ASCII diagram, and three tkinter layout schemas (grid, place
// and nested paned windows).
//
// Exports are pure reads of the shape list and never fail for well-formed
// shapes.
package export
