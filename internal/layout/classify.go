package layout

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// Component is the guessed UI role of a rectangle.
type Component struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Hint       string  `json:"hint"`
}

// Category maps a component type to the keywords that reveal it.
type Category struct {
	Type     string
	Keywords []string
}

// DefaultCategories is the keyword table, checked in order.
var DefaultCategories = []Category{
	{Type: "navbar", Keywords: []string{"nav", "navbar", "menu", "header"}},
	{Type: "hero", Keywords: []string{"hero", "jumbotron", "cover"}},
	{Type: "card", Keywords: []string{"card", "tarjeta", "panel", "box"}},
	{Type: "button", Keywords: []string{"btn", "button", "botón", "cta"}},
	{Type: "form", Keywords: []string{"form", "formulario", "input", "login", "signup"}},
	{Type: "list", Keywords: []string{"list", "lista", "feed", "items"}},
	{Type: "image", Keywords: []string{"img", "image", "foto", "logo", "avatar"}},
}

const (
	keywordConfidence  = 0.9
	fallbackConfidence = 0.5
	unknownConfidence  = 0.2
	minFallbackHint    = 3
)

// Classifier assigns component types from nearby text.
type Classifier struct {
	categories []Category
}

// ClassifierWith returns a classifier using the given keyword table.
func ClassifierWith(categories []Category) *Classifier {
	return &Classifier{categories: categories}
}

// ClassifyComponents classifies every rectangle with the default keyword
// table. The result is keyed by rectangle ID.
func ClassifyComponents(shapes []sketch.Shape) map[string]Component {
	return ClassifierWith(DefaultCategories).Classify(shapes)
}

// Classify picks, for each rectangle, the text whose anchor is closest to the
// rectangle centre (at any distance) and matches it against the keyword
// table. Without any text the rectangle's own label is the hint.
func (c *Classifier) Classify(shapes []sketch.Shape) map[string]Component {
	texts := sketch.Texts(shapes)
	out := make(map[string]Component)
	for _, r := range sketch.Rects(shapes) {
		hint := r.Label
		if t, ok := nearestText(texts, r); ok {
			hint = t.Text
		}
		out[r.ID] = c.classify(strings.ToLower(hint))
	}
	return out
}

func (c *Classifier) classify(hint string) Component {
	for _, cat := range c.categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(hint, kw) {
				return Component{Type: cat.Type, Confidence: keywordConfidence, Hint: hint}
			}
		}
	}
	if utf8.RuneCountInString(strings.TrimSpace(hint)) >= minFallbackHint {
		return Component{Type: "card", Confidence: fallbackConfidence, Hint: hint}
	}
	return Component{Type: "unknown", Confidence: unknownConfidence, Hint: hint}
}

func nearestText(texts []sketch.Text, r sketch.Rect) (sketch.Text, bool) {
	var best sketch.Text
	bestD := math.Inf(1)
	found := false
	c := r.Center()
	for _, t := range texts {
		d := math.Hypot(t.X-c.X, t.Y-c.Y)
		if d < bestD {
			best, bestD, found = t, d, true
		}
	}
	return best, found
}
