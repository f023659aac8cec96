//go:build gocv

package vision

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GocvName is the registry name of the OpenCV backend.
const GocvName = "gocv"

func init() {
	Register(GocvName, func(ctx context.Context) (Backend, error) {
		// Allocating a Mat forces the shared library to load.
		probe := gocv.NewMat()
		defer probe.Close()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &Gocv{}, nil
	})
}

// Gocv is a Backend on top of OpenCV through gocv. It is compiled only with
// the gocv build tag.
type Gocv struct{}

func (*Gocv) Name() string { return GocvName }

type cvMat struct {
	mat    gocv.Mat
	closed bool
}

func (m *cvMat) Size() (int, int) {
	if m.closed {
		return 0, 0
	}
	return m.mat.Cols(), m.mat.Rows()
}

func (m *cvMat) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.mat.Close()
}

func cvOf(m Mat) (gocv.Mat, error) {
	cm, ok := m.(*cvMat)
	if !ok {
		return gocv.Mat{}, ErrForeignMat
	}
	if cm.closed {
		return gocv.Mat{}, ErrClosed
	}
	return cm.mat, nil
}

func (*Gocv) FromRGBA(pix []byte, width, height int) (Mat, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrBadBuffer, len(pix), width, height)
	}
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, pix)
	if err != nil {
		return nil, fmt.Errorf("vision: wrap buffer: %w", err)
	}
	return &cvMat{mat: mat}, nil
}

func (*Gocv) Resize(src Mat, width, height int) (Mat, error) {
	in, err := cvOf(src)
	if err != nil {
		return nil, err
	}
	out := gocv.NewMat()
	gocv.Resize(in, &out, image.Pt(width, height), 0, 0, gocv.InterpolationArea)
	return &cvMat{mat: out}, nil
}

func (*Gocv) Grayscale(src Mat) (Mat, error) {
	in, err := cvOf(src)
	if err != nil {
		return nil, err
	}
	out := gocv.NewMat()
	gocv.CvtColor(in, &out, gocv.ColorRGBAToGray)
	return &cvMat{mat: out}, nil
}

func (*Gocv) GaussianBlur(src Mat, ksize int) (Mat, error) {
	in, err := cvOf(src)
	if err != nil {
		return nil, err
	}
	out := gocv.NewMat()
	gocv.GaussianBlur(in, &out, image.Pt(ksize, ksize), 0, 0, gocv.BorderDefault)
	return &cvMat{mat: out}, nil
}

func (*Gocv) Canny(src Mat, low, high float64) (Mat, error) {
	in, err := cvOf(src)
	if err != nil {
		return nil, err
	}
	out := gocv.NewMat()
	gocv.Canny(in, &out, float32(low), float32(high))
	return &cvMat{mat: out}, nil
}

func (*Gocv) FindExternalContours(edges Mat) (ContourSet, error) {
	in, err := cvOf(edges)
	if err != nil {
		return nil, err
	}
	return &cvContours{pv: gocv.FindContours(in, gocv.RetrievalExternal, gocv.ChainApproxSimple)}, nil
}

type cvContours struct {
	pv     gocv.PointsVector
	closed bool
}

func (c *cvContours) Len() int {
	if c.closed {
		return 0
	}
	return c.pv.Size()
}

func (c *cvContours) Approx(i int, epsilon float64) (Polygon, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if i < 0 || i >= c.pv.Size() {
		return nil, fmt.Errorf("vision: contour index %d out of range", i)
	}
	return &cvPolygon{pv: gocv.ApproxPolyDP(c.pv.At(i), epsilon, true)}, nil
}

func (c *cvContours) Close() error {
	if !c.closed {
		c.closed = true
		c.pv.Close()
	}
	return nil
}

type cvPolygon struct {
	pv     gocv.PointVector
	closed bool
}

func (p *cvPolygon) BoundingRect() image.Rectangle {
	if p.closed {
		return image.Rectangle{}
	}
	return gocv.BoundingRect(p.pv)
}

func (p *cvPolygon) Close() error {
	if !p.closed {
		p.closed = true
		p.pv.Close()
	}
	return nil
}
