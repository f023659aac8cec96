package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
)

var (
	// ErrClosed is returned when a closed Mat is used.
	ErrClosed = errors.New("vision: mat is closed")

	// ErrForeignMat is returned when a Mat from another backend is passed in.
	ErrForeignMat = errors.New("vision: mat belongs to another backend")

	// ErrBadBuffer is returned when a pixel buffer does not match its size.
	ErrBadBuffer = errors.New("vision: buffer size does not match dimensions")

	// ErrUnavailable is returned by a source whose backend is not compiled in.
	ErrUnavailable = errors.New("vision: backend not available")
)

// Mat is an image held in backend memory. It must be closed once the caller
// is done with it; closing twice is harmless.
type Mat interface {
	Size() (width, height int)
	Close() error
}

// Polygon is an approximated contour held in backend memory.
type Polygon interface {
	BoundingRect() image.Rectangle
	Close() error
}

// ContourSet is the list of contours found in an edge map.
type ContourSet interface {
	Len() int
	// Approx simplifies contour i with tolerance epsilon, treating it as
	// closed.
	Approx(i int, epsilon float64) (Polygon, error)
	Close() error
}

// Backend is the set of image primitives rectangle detection is built from.
// Every returned Mat, ContourSet and Polygon is owned by the caller.
type Backend interface {
	Name() string

	// FromRGBA wraps a tightly packed RGBA buffer. The buffer is not copied
	// and must not be modified while the Mat is open.
	FromRGBA(pix []byte, width, height int) (Mat, error)

	// Resize scales src with area averaging.
	Resize(src Mat, width, height int) (Mat, error)

	Grayscale(src Mat) (Mat, error)

	// GaussianBlur smooths with a square kernel of ksize pixels.
	GaussianBlur(src Mat, ksize int) (Mat, error)

	// Canny returns a binary edge map using hysteresis thresholds low and
	// high.
	Canny(src Mat, low, high float64) (Mat, error)

	// FindExternalContours returns the outermost contours of an edge map.
	FindExternalContours(edges Mat) (ContourSet, error)
}

// OpenFunc initialises a backend. It may block, for example while a native
// library loads, and should honour ctx.
type OpenFunc func(ctx context.Context) (Backend, error)

var registry = struct {
	sync.RWMutex
	open map[string]OpenFunc
}{open: make(map[string]OpenFunc)}

// Register makes a backend available under name. Backends register
// themselves from init.
func Register(name string, open OpenFunc) {
	registry.Lock()
	registry.open[name] = open
	registry.Unlock()
}

// Available lists the registered backend names in sorted order.
func Available() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.open))
	for name := range registry.open {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sources resolves backend names into loader sources, keeping their order.
// Names that are not registered still produce a source; it fails with
// ErrUnavailable so the loader moves on to the next one.
func Sources(names ...string) []Source {
	registry.RLock()
	defer registry.RUnlock()

	out := make([]Source, 0, len(names))
	for _, name := range names {
		open, ok := registry.open[name]
		if !ok {
			n := name
			open = func(context.Context) (Backend, error) {
				return nil, fmt.Errorf("%w: %s", ErrUnavailable, n)
			}
		}
		out = append(out, Source{Name: name, Open: open})
	}
	return out
}

// DefaultSources is the preferred load order: the native OpenCV binding when
// compiled in, then the pure Go implementation.
func DefaultSources() []Source {
	return Sources("gocv", "bild")
}
