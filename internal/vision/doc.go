// Package vision provides the image primitives rectangle detection is built
// from, behind a small Backend interface, and a Loader that picks a backend
// at runtime.
//
// Two backends exist:
//
//   - "bild": pure Go, built on github.com/anthonynsimon/bild and
//     github.com/disintegration/imaging. Always compiled in.
//   - "gocv": OpenCV through gocv.io/x/gocv. Compiled in with the gocv build
//     tag and preferred when present.
//
// Values returned by a backend (Mat, ContourSet, Polygon) own backend memory
// and must be closed by the caller.
//
// # Loader
//
// A Loader tries an ordered list of sources. Each attempt is bounded by a
// timeout (30s by default); a failure or timeout moves on to the next source
// and running out of sources fails the load. The outcome is memoised:
// concurrent callers share one attempt, and a failed load stays failed.
package vision
