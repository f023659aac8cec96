// Package ocr reads the words of a reference image with Tesseract, so they
// can be imported into a sketch as text labels.
//
// Tesseract is reached through gosseract/v2 and needs cgo plus the
// Tesseract and Leptonica libraries:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Builds without cgo compile a stub whose ExtractLabels returns
// ErrUnavailable; Available reports which one is in use.
//
// Words are recognised at word level (RIL_WORD). Words without a letter or a
// digit and words below Options.MinConfidence are dropped.
package ocr
