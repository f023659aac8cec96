//go:build cgo

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// Available reports whether Tesseract support is compiled in.
func Available() bool { return true }

// Version returns the Tesseract library version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// ExtractLabels runs word-level OCR over img.
//
// Parameters:
//   - img: The image to read. It is encoded to PNG in memory; no temporary
//     file is written.
//   - opts: Language, tessdata location and confidence cut-off. Zero values
//     take the package defaults.
//
// Returns:
//   - []Label: Recognised words in reading order, boxes in img pixels.
//   - error: Non-nil if Tesseract cannot be initialised or fails.
func ExtractLabels(img image.Image, opts Options) ([]Label, error) {
	opts = opts.withDefaults()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(opts.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	b := img.Bounds()
	words := make([]word, 0, len(boxes))
	for _, box := range boxes {
		words = append(words, word{
			text: box.Word,
			box:  box.Box.Add(b.Min),
			conf: box.Confidence,
		})
	}
	return labelsFromWords(words, opts.MinConfidence), nil
}
