package vision

import (
	"image"
	"math"
	"sort"
)

// linkRadius is the Chebyshev distance up to which edge pixels belong to the
// same contour. A radius of 2 bridges the one pixel gaps non-maximum
// suppression tends to leave at corners.
const linkRadius = 2

// externalContours groups the set pixels of an edge map into contours and
// drops every contour whose bounding box lies strictly inside another's.
func externalContours(edges *image.Gray) [][]image.Point {
	b := edges.Bounds()
	width, height := b.Dx(), b.Dy()
	visited := make([]bool, width*height)
	on := func(x, y int) bool {
		return edges.Pix[y*edges.Stride+x] != 0
	}

	var contours [][]image.Point
	var boxes []image.Rectangle
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || !on(x, y) {
				continue
			}
			contour := floodFill(on, visited, x, y, width, height)
			contours = append(contours, contour)
			boxes = append(boxes, pointsBounds(contour))
		}
	}

	out := make([][]image.Point, 0, len(contours))
	for i, c := range contours {
		inner := false
		for j := range contours {
			if i != j && strictlyInside(boxes[i], boxes[j]) {
				inner = true
				break
			}
		}
		if !inner {
			out = append(out, c)
		}
	}
	return out
}

// floodFill collects the pixels linked to (startX, startY). It uses an
// explicit stack so large contours cannot overflow the goroutine stack.
func floodFill(on func(x, y int) bool, visited []bool, startX, startY, width, height int) []image.Point {
	var contour []image.Point
	stack := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		contour = append(contour, p)

		for dy := -linkRadius; dy <= linkRadius; dy++ {
			for dx := -linkRadius; dx <= linkRadius; dx++ {
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				if visited[ny*width+nx] || !on(nx, ny) {
					continue
				}
				visited[ny*width+nx] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return contour
}

func pointsBounds(pts []image.Point) image.Rectangle {
	r := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

func strictlyInside(inner, outer image.Rectangle) bool {
	return inner.Min.X > outer.Min.X && inner.Min.Y > outer.Min.Y &&
		inner.Max.X < outer.Max.X && inner.Max.Y < outer.Max.Y
}

// convexHull returns the hull of pts in counter-clockwise order using the
// monotone chain algorithm. Collinear points are dropped.
func convexHull(pts []image.Point) []image.Point {
	if len(pts) < 3 {
		out := make([]image.Point, len(pts))
		copy(out, pts)
		return out
	}
	sorted := make([]image.Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// approxPolygon simplifies a closed polygon with Douglas-Peucker. The ring
// is split at the vertex farthest from the first one and each half is
// simplified on its own.
func approxPolygon(ring []image.Point, epsilon float64) []image.Point {
	if len(ring) < 3 || epsilon <= 0 {
		out := make([]image.Point, len(ring))
		copy(out, ring)
		return out
	}

	far, farD := 0, -1.0
	for i, p := range ring {
		d := math.Hypot(float64(p.X-ring[0].X), float64(p.Y-ring[0].Y))
		if d > farD {
			far, farD = i, d
		}
	}

	first := douglasPeucker(ring[:far+1], epsilon)
	second := douglasPeucker(append(append([]image.Point{}, ring[far:]...), ring[0]), epsilon)

	out := append(first[:len(first)-1], second[:len(second)-1]...)
	return out
}

func douglasPeucker(pts []image.Point, epsilon float64) []image.Point {
	if len(pts) < 3 {
		out := make([]image.Point, len(pts))
		copy(out, pts)
		return out
	}
	a, b := pts[0], pts[len(pts)-1]
	idx, maxD := 0, -1.0
	for i := 1; i < len(pts)-1; i++ {
		d := segmentDistance(pts[i], a, b)
		if d > maxD {
			idx, maxD = i, d
		}
	}
	if maxD <= epsilon {
		return []image.Point{a, b}
	}
	left := douglasPeucker(pts[:idx+1], epsilon)
	right := douglasPeucker(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// segmentDistance is the distance from p to the segment ab.
func segmentDistance(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	px, py := float64(p.X-a.X), float64(p.Y-a.Y)
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px, py)
	}
	t := math.Max(0, math.Min(1, (px*dx+py*dy)/lenSq))
	return math.Hypot(px-t*dx, py-t*dy)
}
