package layout

import (
	"sort"
	"strings"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// RootID is the identifier of the synthetic root node.
const RootID = "root"

// Node is one rectangle in a containment tree. Children and Parent are
// indexes into Tree.Nodes; Parent is -1 for the root.
type Node struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	BBox     geometry.GridBBox `json:"bbox"`
	Children []int             `json:"-"`
	Parent   int               `json:"-"`
}

// Tree is an arena of nodes forming a containment hierarchy.
type Tree struct {
	Nodes []Node
	Root  int
}

// Node returns the node at index i.
func (t *Tree) Node(i int) *Node {
	return &t.Nodes[i]
}

// BuildContainmentTree nests the rectangles of shapes by grid-space
// containment.
//
// Rectangles are visited from largest to smallest area. Each one becomes a
// child of the smallest already visited rectangle that contains it (edges may
// touch). Parentless rectangles are roots. A single root is returned as is;
// zero or several roots are wrapped in a synthetic node with ID "root" whose
// children are ordered top to bottom, then left to right.
//
// The synthetic root covers the whole grid and grows to cover any root that
// extends past it.
func BuildContainmentTree(shapes []sketch.Shape, g geometry.Grid) *Tree {
	rects := sketch.Rects(shapes)
	t := &Tree{Nodes: make([]Node, 0, len(rects)+1)}

	for _, r := range rects {
		t.Nodes = append(t.Nodes, Node{
			ID:     r.ID,
			Label:  strings.ToLower(r.Label),
			BBox:   geometry.ToGridBBox(r.Bounds(), g),
			Parent: -1,
		})
	}

	order := make([]int, len(t.Nodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return t.Nodes[order[a]].BBox.Area() > t.Nodes[order[b]].BBox.Area()
	})

	var roots []int
	for k, i := range order {
		best := -1
		for _, j := range order[:k] {
			if !t.Nodes[j].BBox.Contains(t.Nodes[i].BBox) {
				continue
			}
			if best < 0 || t.Nodes[j].BBox.Area() < t.Nodes[best].BBox.Area() {
				best = j
			}
		}
		if best < 0 {
			roots = append(roots, i)
			continue
		}
		t.Nodes[i].Parent = best
		t.Nodes[best].Children = append(t.Nodes[best].Children, i)
	}

	if len(roots) == 1 {
		t.Root = roots[0]
		return t
	}

	sort.SliceStable(roots, func(a, b int) bool {
		ra, rb := t.Nodes[roots[a]].BBox, t.Nodes[roots[b]].BBox
		if ra.Y != rb.Y {
			return ra.Y < rb.Y
		}
		return ra.X < rb.X
	})

	bbox := geometry.GridBBox{X: 0, Y: 0, W: max(1, g.Cols), H: max(1, g.Rows)}
	for _, i := range roots {
		bbox = bbox.Union(t.Nodes[i].BBox)
		t.Nodes[i].Parent = len(t.Nodes)
	}
	t.Nodes = append(t.Nodes, Node{
		ID:       RootID,
		Label:    RootID,
		BBox:     bbox,
		Children: roots,
		Parent:   -1,
	})
	t.Root = len(t.Nodes) - 1
	return t
}

// Walk visits every node reachable from the root depth-first, parents before
// children.
func (t *Tree) Walk(fn func(idx int, n *Node, depth int)) {
	if len(t.Nodes) == 0 {
		return
	}
	var visit func(i, depth int)
	visit = func(i, depth int) {
		fn(i, &t.Nodes[i], depth)
		for _, c := range t.Nodes[i].Children {
			visit(c, depth+1)
		}
	}
	visit(t.Root, 0)
}
