package vision

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// BildName is the registry name of the pure Go backend.
const BildName = "bild"

func init() {
	Register(BildName, func(context.Context) (Backend, error) {
		return NewBild(), nil
	})
}

// Bild is a pure Go Backend built on bild and imaging. It needs no native
// libraries and is always available.
type Bild struct{}

// NewBild returns the pure Go backend.
func NewBild() *Bild {
	return &Bild{}
}

func (*Bild) Name() string { return BildName }

// imageMat is a Mat backed by a Go image.
type imageMat struct {
	img image.Image
}

func (m *imageMat) Size() (int, int) {
	if m.img == nil {
		return 0, 0
	}
	b := m.img.Bounds()
	return b.Dx(), b.Dy()
}

func (m *imageMat) Close() error {
	m.img = nil
	return nil
}

func matImage(m Mat) (image.Image, error) {
	im, ok := m.(*imageMat)
	if !ok {
		return nil, ErrForeignMat
	}
	if im.img == nil {
		return nil, ErrClosed
	}
	return im.img, nil
}

func (*Bild) FromRGBA(pix []byte, width, height int) (Mat, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrBadBuffer, len(pix), width, height)
	}
	return &imageMat{img: &image.RGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}}, nil
}

func (*Bild) Resize(src Mat, width, height int) (Mat, error) {
	img, err := matImage(src)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("vision: invalid resize target %dx%d", width, height)
	}
	return &imageMat{img: imaging.Resize(img, width, height, imaging.Box)}, nil
}

func (*Bild) Grayscale(src Mat) (Mat, error) {
	img, err := matImage(src)
	if err != nil {
		return nil, err
	}
	return &imageMat{img: toGray(effect.Grayscale(img))}, nil
}

func (*Bild) GaussianBlur(src Mat, ksize int) (Mat, error) {
	img, err := matImage(src)
	if err != nil {
		return nil, err
	}
	if ksize < 1 || ksize%2 == 0 {
		return nil, fmt.Errorf("vision: kernel size must be odd and positive, got %d", ksize)
	}
	blurred := convolution.Convolve(img, gaussianKernel(ksize), &convolution.Options{})
	return &imageMat{img: toGray(blurred)}, nil
}

// toGray copies img into a single channel image. bild's effects return
// RGBA, while Canny and the contour tracer work on *image.Gray.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

// gaussianKernel builds a normalised ksize x ksize Gaussian kernel. Sigma is
// derived from the size the way OpenCV does when none is given, so a 5x5
// kernel has sigma 1.1.
func gaussianKernel(ksize int) *convolution.Kernel {
	sigma := 0.3*(float64(ksize-1)*0.5-1) + 0.8
	half := ksize / 2
	taps := make([]float64, ksize)
	sum := 0.0
	for i := range taps {
		x := float64(i - half)
		taps[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += taps[i]
	}
	k := convolution.NewKernel(ksize, ksize)
	for y := 0; y < ksize; y++ {
		for x := 0; x < ksize; x++ {
			k.Matrix[y*ksize+x] = taps[x] * taps[y] / (sum * sum)
		}
	}
	return k
}

func (*Bild) Canny(src Mat, low, high float64) (Mat, error) {
	img, err := matImage(src)
	if err != nil {
		return nil, err
	}
	return &imageMat{img: canny(toGray(img), low, high)}, nil
}

func (*Bild) FindExternalContours(edges Mat) (ContourSet, error) {
	img, err := matImage(edges)
	if err != nil {
		return nil, err
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("vision: contours need a single channel edge map, got %T", img)
	}
	return &pointContours{contours: externalContours(gray)}, nil
}

// pointContours is a ContourSet of pixel lists.
type pointContours struct {
	contours [][]image.Point
}

func (c *pointContours) Len() int { return len(c.contours) }

func (c *pointContours) Approx(i int, epsilon float64) (Polygon, error) {
	if c.contours == nil {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(c.contours) {
		return nil, fmt.Errorf("vision: contour index %d out of range", i)
	}
	return &pointPolygon{pts: approxPolygon(convexHull(c.contours[i]), epsilon)}, nil
}

func (c *pointContours) Close() error {
	c.contours = nil
	return nil
}

// pointPolygon is a Polygon of vertices.
type pointPolygon struct {
	pts []image.Point
}

// BoundingRect returns the smallest rectangle containing every vertex. Like
// OpenCV it counts pixels, so a single vertex yields a 1x1 rectangle.
func (p *pointPolygon) BoundingRect() image.Rectangle {
	if len(p.pts) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: p.pts[0], Max: p.pts[0]}
	for _, pt := range p.pts[1:] {
		r.Min.X = min(r.Min.X, pt.X)
		r.Min.Y = min(r.Min.Y, pt.Y)
		r.Max.X = max(r.Max.X, pt.X)
		r.Max.Y = max(r.Max.Y, pt.Y)
	}
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}

func (p *pointPolygon) Close() error {
	p.pts = nil
	return nil
}

// edgeOn is the value of an edge pixel in a Canny output map.
var edgeOn = color.Gray{Y: 255}
