package layout

// Orientation is the axis along which a node's children are arranged.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// varianceMargin is how much larger one axis variance must be than the other
// before it decides the orientation.
const varianceMargin = 1.2

// InferOrientation guesses how the children of node idx are laid out.
//
// Children whose centres spread mostly along Y stack vertically; those that
// spread mostly along X sit side by side. When neither variance exceeds the
// other by 20%, the node's own aspect ratio decides (wide is horizontal).
// The second return value is false when the node has fewer than two children.
func InferOrientation(t *Tree, idx int) (Orientation, bool) {
	n := t.Nodes[idx]
	if len(n.Children) < 2 {
		return "", false
	}

	xs := make([]float64, len(n.Children))
	ys := make([]float64, len(n.Children))
	for i, c := range n.Children {
		bb := t.Nodes[c].BBox
		xs[i] = float64(bb.X) + float64(bb.W)/2
		ys[i] = float64(bb.Y) + float64(bb.H)/2
	}
	varX, varY := variance(xs), variance(ys)

	switch {
	case varY > varX*varianceMargin:
		return Vertical, true
	case varX > varY*varianceMargin:
		return Horizontal, true
	case n.BBox.W >= n.BBox.H:
		return Horizontal, true
	default:
		return Vertical, true
	}
}

func variance(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var mean float64
	for _, v := range vs {
		mean += v
	}
	mean /= float64(len(vs))
	var sum float64
	for _, v := range vs {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(vs))
}
