package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/sketch-tools-mcp/internal/ascii"
	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// Format names an export target.
type Format string

const (
	FormatJSON     Format = "json"
	FormatASCII    Format = "ascii"
	FormatTkGrid   Format = "tk-grid"
	FormatTkPlace  Format = "tk-place"
	FormatTkHybrid Format = "tk-hybrid"
)

// ErrUnknownFormat is returned for a format name Render does not know.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatJSON, FormatASCII, FormatTkGrid, FormatTkPlace, FormatTkHybrid}
}

// ParseFormat resolves a format name, case-insensitively. Underscores are
// accepted in place of dashes.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-"))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ContentType returns the MIME type of a rendered format.
func (f Format) ContentType() string {
	if f == FormatASCII {
		return "text/plain; charset=utf-8"
	}
	return "application/json"
}

// ASCII renders the ASCII diagram and summary table.
func ASCII(shapes []sketch.Shape, g geometry.Grid) string {
	return ascii.Render(shapes, g)
}

// Render produces format f for shapes. JSON formats are indented with two
// spaces. Rendering never modifies shapes, so it is safe to call repeatedly.
func Render(f Format, shapes []sketch.Shape, g geometry.Grid) ([]byte, error) {
	var v interface{}
	switch f {
	case FormatASCII:
		return []byte(ASCII(shapes, g)), nil
	case FormatJSON:
		v = JSON(shapes, g)
	case FormatTkGrid:
		v = TkGrid(shapes, g)
	case FormatTkPlace:
		v = TkPlace(shapes, g)
	case FormatTkHybrid:
		v = TkHybrid(shapes, g)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s export: %w", f, err)
	}
	return data, nil
}
