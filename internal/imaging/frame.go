package imaging

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
)

// ToFrame copies img into a tightly packed RGBA frame for detection. The
// frame owns its buffer, so it can be handed to a detection worker without
// affecting img.
func ToFrame(img image.Image) detection.Frame {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	return detection.Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    nrgba.Pix,
	}
}
