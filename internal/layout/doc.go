// Package layout infers structure from a flat list of sketched shapes.
//
// It provides a containment tree of rectangles (arena based, parents found by
// grid-space containment), an orientation guess for each node's children, a
// rows-first flat layout, and a keyword classifier that labels rectangles with
// a likely UI component type.
package layout
