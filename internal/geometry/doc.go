// Package geometry holds the coordinate types and pure helpers shared by the
// sketch, layout, ASCII and detection packages.
//
// Three coordinate spaces are in play:
//
//   - pixel space: float64 canvas coordinates of sketched shapes (Point, Rect)
//   - image space: integer pixel rectangles produced by detection (Box)
//   - grid space: integer cell coordinates on the logical layout grid
//     (GridBBox, GridPoint)
//
// Every function in this package is total and free of side effects.
package geometry
