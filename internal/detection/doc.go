// Package detection finds rectangles in raster images and runs that work off
// the caller's goroutine.
//
// # Pipeline
//
// Pipeline.Run turns an RGBA Frame into a list of integer pixel boxes:
//
//  1. Resize: frames whose longer side exceeds Options.MaxDim are scaled down
//  2. Grayscale and a 5x5 Gaussian blur
//  3. Canny edge detection with thresholds Canny1 and Canny2
//  4. External contours, each approximated to a polygon (ApproxEps)
//  5. Bounding rectangles with both sides above MinSize, scaled back up
//  6. geometry.MergeOverlaps with IoUThresh
//
// The image primitives come from a vision.Backend. Every intermediate image
// is closed as soon as the next stage has consumed it.
//
// # Worker protocol
//
// A Worker owns one goroutine and talks only through messages: a Request of
// type "detect" carrying an ID, the frame size, the pixel buffer and the
// options; replies of type "result" (rects) or "error" (message) with the
// same ID; and "log" messages at any time.
//
// Client hides the protocol behind a blocking Detect call. It starts the
// worker lazily, matches replies to callers by ID, forwards log messages to
// every listener and rejects all pending requests when the worker crashes or
// the client is closed. There is no cancel message: a request that was
// posted always runs to completion on the worker.
//
// # Coordinate System
//
// Boxes use the image convention: origin at the top-left corner, X to the
// right, Y downward. W and H count pixels.
package detection
