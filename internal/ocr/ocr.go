package ocr

import (
	"errors"
	"image"
	"sort"
	"strings"
	"unicode"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
)

// ErrUnavailable is returned when the binary was built without Tesseract.
var ErrUnavailable = errors.New("ocr: tesseract support not compiled in")

const (
	// DefaultLanguage is the Tesseract language used when none is set.
	DefaultLanguage = "eng"

	// DefaultMinConfidence drops words Tesseract is less than 50% sure of.
	DefaultMinConfidence = 0.5
)

// Options configures label extraction.
type Options struct {
	// Language is a Tesseract language code such as "eng" or "deu".
	Language string `yaml:"language"`

	// TessdataPrefix overrides the directory holding the language data.
	TessdataPrefix string `yaml:"tessdata_prefix"`

	// MinConfidence is the lowest accepted word confidence, 0 to 1.
	MinConfidence float64 `yaml:"min_confidence"`
}

func (o Options) withDefaults() Options {
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = DefaultMinConfidence
	}
	return o
}

// Label is a recognised word and where it sits in the image.
type Label struct {
	Text string `json:"text"`

	// Box is the word's bounding box in image pixels.
	Box geometry.Box `json:"box"`

	// Confidence is Tesseract's confidence, 0 to 1.
	Confidence float64 `json:"confidence"`
}

// word is a raw recognition result; conf is on Tesseract's 0-100 scale.
type word struct {
	text string
	box  image.Rectangle
	conf float64
}

// labelsFromWords keeps the words worth turning into sketch text: trimmed,
// containing at least one letter or digit, at or above minConf. Labels are
// returned in reading order, top to bottom then left to right.
func labelsFromWords(words []word, minConf float64) []Label {
	labels := make([]Label, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.text)
		if !strings.ContainsFunc(text, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		}) {
			continue
		}
		conf := w.conf / 100
		if conf < minConf {
			continue
		}
		labels = append(labels, Label{
			Text:       text,
			Box:        geometry.Box{X: w.box.Min.X, Y: w.box.Min.Y, W: w.box.Dx(), H: w.box.Dy()},
			Confidence: conf,
		})
	}
	sort.SliceStable(labels, func(i, j int) bool {
		if labels[i].Box.Y != labels[j].Box.Y {
			return labels[i].Box.Y < labels[j].Box.Y
		}
		return labels[i].Box.X < labels[j].Box.X
	})
	return labels
}
