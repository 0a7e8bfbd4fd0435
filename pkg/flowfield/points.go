package flowfield

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Sample is one flow record: a location and the fluid velocity there
type Sample struct {
	Position r3.Vector
	Velocity r3.Vector
}

// node is a kd-tree entry that remembers which sample it came from
type node struct {
	r3.Vector
	idx int
}

// Compare implements the kdtree.Comparable interface
func (p node) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(node)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p node) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p node) Distance(c kdtree.Comparable) float64 {
	q := c.(node)
	return p.Vector.Sub(q.Vector).Norm2()
}

// nodes is a collection of node that satisfies kdtree.Interface
type nodes []node

func (p nodes) Index(i int) kdtree.Comparable         { return p[i] }
func (p nodes) Len() int                              { return len(p) }
func (p nodes) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p nodes) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{nodes: p, Dim: d}, kdtree.MedianOfRandoms(plane{nodes: p, Dim: d}, 100))
}

// plane implements sort.Interface and kdtree.SortSlicer for nodes
type plane struct {
	nodes
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.nodes[i].X < p.nodes[j].X
	case 1:
		return p.nodes[i].Y < p.nodes[j].Y
	case 2:
		return p.nodes[i].Z < p.nodes[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{nodes: p.nodes[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.nodes[i], p.nodes[j] = p.nodes[j], p.nodes[i]
}

// Points samples a scattered set of flow records.
//
// Locate returns the nearest record, provided the point lies in the
// bounding box of the data and within MaxDistance of that record.
// Velocity blends the K nearest records with inverse-distance weights.
// The tree is only read after construction, so Points is safe for
// concurrent use.
type Points struct {
	samples []Sample
	tree    *kdtree.Tree
	bounds  Box

	// K is the number of neighbours blended by Velocity
	K int

	// MaxDistance rejects points further than this from any record; 0 disables the check
	MaxDistance float64
}

// NewPoints builds a sampler over samples. k < 1 selects 8 neighbours.
func NewPoints(samples []Sample, k int) (*Points, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("flow field has no samples")
	}
	if k < 1 {
		k = 8
	}

	pts := make(nodes, len(samples))
	bounds := Box{Min: samples[0].Position, Max: samples[0].Position}
	for i, s := range samples {
		if !finite(s.Position) || !finite(s.Velocity) {
			return nil, fmt.Errorf("flow sample %d is not finite", i)
		}
		pts[i] = node{Vector: s.Position, idx: i}
		bounds.Min = r3.Vector{
			X: math.Min(bounds.Min.X, s.Position.X),
			Y: math.Min(bounds.Min.Y, s.Position.Y),
			Z: math.Min(bounds.Min.Z, s.Position.Z),
		}
		bounds.Max = r3.Vector{
			X: math.Max(bounds.Max.X, s.Position.X),
			Y: math.Max(bounds.Max.Y, s.Position.Y),
			Z: math.Max(bounds.Max.Z, s.Position.Z),
		}
	}

	return &Points{
		samples: samples,
		tree:    kdtree.New(pts, false),
		bounds:  bounds,
		K:       k,
	}, nil
}

// Bounds returns the bounding box of the flow records
func (s *Points) Bounds() Box {
	return s.bounds
}

// Locate implements Sampler
func (s *Points) Locate(p r3.Vector) (Cell, error) {
	if !finite(p) || !s.bounds.Contains(p) {
		return 0, ErrOutOfDomain
	}
	nearest, dist2 := s.tree.Nearest(node{Vector: p, idx: -1})
	if nearest == nil {
		return 0, ErrOutOfDomain
	}
	if s.MaxDistance > 0 && dist2 > s.MaxDistance*s.MaxDistance {
		return 0, ErrOutOfDomain
	}
	return Cell(nearest.(node).idx), nil
}

// Velocity implements Sampler
func (s *Points) Velocity(c Cell, p r3.Vector) (r3.Vector, error) {
	if int(c) < 0 || int(c) >= len(s.samples) {
		return r3.Vector{}, fmt.Errorf("%w: unknown cell %d", ErrInterpolation, c)
	}

	keeper := kdtree.NewNKeeper(s.K)
	s.tree.NearestSet(keeper, node{Vector: p, idx: -1})

	var sum r3.Vector
	var weights float64
	for _, item := range keeper.Heap {
		// Skip the sentinel value
		if item.Comparable == nil {
			continue
		}
		n := item.Comparable.(node)
		if item.Dist == 0 {
			return s.samples[n.idx].Velocity, nil
		}
		w := 1 / item.Dist
		sum = sum.Add(s.samples[n.idx].Velocity.Mul(w))
		weights += w
	}
	if weights == 0 {
		return r3.Vector{}, ErrInterpolation
	}

	v := sum.Mul(1 / weights)
	if !finite(v) {
		return r3.Vector{}, ErrInterpolation
	}
	return v, nil
}

func finite(v r3.Vector) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
