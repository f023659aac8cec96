// Package sketch holds the shape data model and the in-memory sketch a user
// edits: rectangles, freehand strokes and text labels in canvas pixel
// coordinates.
//
// Shapes are value types. A Sketch owns the ordered shape list and hands out
// snapshots, so exporters always work on a consistent copy.
//
// Sketches can be loaded from and saved to JSON or YAML documents. Documents
// are validated against an embedded JSON Schema before any state changes.
package sketch
