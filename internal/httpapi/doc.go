// Package httpapi serves exports and stateless rectangle detection over HTTP.
//
// Routes:
//
//	GET  /health/live      process is up
//	GET  /health/ready     503 once the vision backend failed to load
//	POST /export/:format   sketch document (JSON or YAML) in, layout out
//	POST /detect           multipart "file" in, rectangles out
//
// /detect takes the detection tunables as query parameters: min_size,
// canny1, canny2, approx_eps, iou_thresh and max_dim. Errors are JSON
// objects with a single "error" field.
package httpapi
