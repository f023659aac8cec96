package vision

import (
	"image"
	"math"
)

// canny runs Sobel gradients, non-maximum suppression and hysteresis over an
// already smoothed grayscale image. Gradient magnitude is |gx|+|gy|, as in
// OpenCV's default, and thresholds are in those units. The result has the
// same bounds as src, edge pixels set to 255.
//
// Pixels at or above high are strong edges. Pixels between low and high are
// kept only when a chain of such pixels connects them to a strong edge.
func canny(src *image.Gray, low, high float64) *image.Gray {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	out := image.NewGray(b)
	if width < 3 || height < 3 {
		return out
	}

	at := func(x, y int) float64 {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return float64(src.Pix[y*src.Stride+x])
	}

	magnitude := make([]float64, width*height)
	direction := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) -
				2*at(x-1, y) + 2*at(x+1, y) -
				at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			magnitude[y*width+x] = math.Abs(gx) + math.Abs(gy)
			direction[y*width+x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression along the quantised gradient direction.
	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag < low {
				continue
			}
			var n1, n2 float64
			angle := direction[i]
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude[i-1], magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[i-width-1], magnitude[i+width+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[i-width], magnitude[i+width]
			default:
				n1, n2 = magnitude[i-width+1], magnitude[i+width-1]
			}
			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	stack := make([]int, 0, 256)
	for i, v := range suppressed {
		if v >= high {
			stack = append(stack, i)
			out.Pix[(i/width)*out.Stride+i%width] = edgeOn.Y
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				p := ny*out.Stride + nx
				if out.Pix[p] != 0 || suppressed[j] < low {
					continue
				}
				out.Pix[p] = edgeOn.Y
				stack = append(stack, j)
			}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
