// Package imaging loads reference images and prepares them for the sketch.
//
// A reference image is a screenshot or mockup shown behind the sketch while
// it is traced. This package decodes such images (ImageCache, Decode),
// composes them onto the canvas the way they are displayed (ComposeReference),
// converts them into detection frames (ToFrame) and renders PNG previews of
// the canvas with the grid and shape outlines drawn on top (DrawOverlay,
// EncodePreview).
//
// # Coordinate System
//
// Image pixels use the standard image convention: (0,0) at the top-left
// corner, X rightward, Y downward. Placement maps image pixels to canvas
// pixels; canvas pixels are what sketch shapes are expressed in.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless
// and never modify their input image.
package imaging
