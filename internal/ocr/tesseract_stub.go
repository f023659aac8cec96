//go:build !cgo

package ocr

import "image"

// Available reports whether Tesseract support is compiled in.
func Available() bool { return false }

// Version returns an empty string; Tesseract is not compiled in.
func Version() string { return "" }

// ExtractLabels always fails with ErrUnavailable in builds without cgo.
func ExtractLabels(image.Image, Options) ([]Label, error) {
	return nil, ErrUnavailable
}
