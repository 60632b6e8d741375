package bvh

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Leaves hold at most this many triangles.
const maxLeafSize = 4

// Barycentric slack so rays through shared edges never fall between two triangles.
const edgeEpsilon = 1e-5

// Hits closer than this to the ray origin are ignored.
const minHitDistance = 1e-6

const boxPadding = 1e-4

type BVHNode struct {
	Min       mgl32.Vec3
	Max       mgl32.Vec3
	Left      int32
	Right     int32
	LeafFirst int32
	LeafCount int32
}

func (n *BVHNode) IsLeaf() bool {
	return n.Left < 0 && n.Right < 0
}

type AABBItem struct {
	Min      mgl32.Vec3
	Max      mgl32.Vec3
	Centroid mgl32.Vec3
	Index    int
}

type triangle struct {
	A, B, C mgl32.Vec3
	Normal  mgl32.Vec3
	Index   int
}

// Hit is the nearest intersection along a ray.
type Hit struct {
	Distance float32
	Normal   mgl32.Vec3 // unit face normal
	Triangle int       // index into the source triangle list
}

// TriangleBVH accelerates nearest-hit ray queries against a static triangle mesh.
// It is immutable after Build and safe for concurrent readers.
type TriangleBVH struct {
	Nodes     []BVHNode
	triangles []triangle
}

// Build constructs the hierarchy from indexed triangles. Degenerate triangles are dropped.
func Build(positions []mgl32.Vec3, indices []uint32) *TriangleBVH {
	t := &TriangleBVH{}

	items := make([]AABBItem, 0, len(indices)/3)
	source := make([]triangle, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := positions[indices[i]], positions[indices[i+1]], positions[indices[i+2]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() < 1e-12 {
			continue
		}
		tri := triangle{A: a, B: b, C: c, Normal: n.Normalize(), Index: i / 3}
		// Padded so edge hits accepted by edgeEpsilon stay inside the box
		pad := mgl32.Vec3{boxPadding, boxPadding, boxPadding}
		minB := mgl32.Vec3{min(a.X(), b.X(), c.X()), min(a.Y(), b.Y(), c.Y()), min(a.Z(), b.Z(), c.Z())}.Sub(pad)
		maxB := mgl32.Vec3{max(a.X(), b.X(), c.X()), max(a.Y(), b.Y(), c.Y()), max(a.Z(), b.Z(), c.Z())}.Add(pad)
		items = append(items, AABBItem{
			Min:      minB,
			Max:      maxB,
			Centroid: a.Add(b).Add(c).Mul(1.0 / 3.0),
			Index:    len(source),
		})
		source = append(source, tri)
	}

	if len(items) == 0 {
		t.Nodes = []BVHNode{{Left: -1, Right: -1, LeafFirst: 0, LeafCount: 0}}
		return t
	}

	t.triangles = make([]triangle, 0, len(source))
	t.recursiveBuild(items, source)
	return t
}

func (t *TriangleBVH) recursiveBuild(items []AABBItem, source []triangle) int32 {
	idx := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, BVHNode{Left: -1, Right: -1, LeafFirst: -1, LeafCount: 0})

	inf := float32(math.Inf(1))
	minB := mgl32.Vec3{inf, inf, inf}
	maxB := mgl32.Vec3{-inf, -inf, -inf}
	for _, it := range items {
		minB = mgl32.Vec3{min(minB.X(), it.Min.X()), min(minB.Y(), it.Min.Y()), min(minB.Z(), it.Min.Z())}
		maxB = mgl32.Vec3{max(maxB.X(), it.Max.X()), max(maxB.Y(), it.Max.Y()), max(maxB.Z(), it.Max.Z())}
	}
	t.Nodes[idx].Min = minB
	t.Nodes[idx].Max = maxB

	if len(items) <= maxLeafSize {
		t.Nodes[idx].LeafFirst = int32(len(t.triangles))
		t.Nodes[idx].LeafCount = int32(len(items))
		for _, it := range items {
			t.triangles = append(t.triangles, source[it.Index])
		}
		return idx
	}

	// Median split on the widest axis
	extent := maxB.Sub(minB)
	axis := 0
	if extent.Y() > extent.X() {
		axis = 1
	}
	if extent.Z() > extent[axis] {
		axis = 2
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Centroid[axis] < items[j].Centroid[axis]
	})

	mid := len(items) / 2
	left := t.recursiveBuild(items[:mid], source)
	right := t.recursiveBuild(items[mid:], source)
	t.Nodes[idx].Left = left
	t.Nodes[idx].Right = right

	return idx
}

// TriangleCount returns the number of non-degenerate triangles in the hierarchy.
func (t *TriangleBVH) TriangleCount() int {
	return len(t.triangles)
}

// Bounds returns the root bounding box.
func (t *TriangleBVH) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	return t.Nodes[0].Min, t.Nodes[0].Max
}
