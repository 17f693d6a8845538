package iforest

import (
	"math"
	"math/rand"

	"github.com/hed1ad/isoforest/pkg/dataset"
)

// eulerGamma is the Euler-Mascheroni constant.
const eulerGamma = 0.5772156649

// leaf marks a node without children.
const leaf = -1

// node is one entry of a tree's node arena. Children are referenced by index.
type node struct {
	// Size is the number of training records that reached this node.
	Size int

	// Split parameters (internal nodes only)
	Attr  int
	Split float64

	// Low/High index the children, or are leaf for a leaf.
	Low  int
	High int
}

func (n *node) isLeaf() bool { return n.Low == leaf }

// iTree is an isolation tree stored as a flat arena rooted at Nodes[0].
type iTree struct {
	Nodes []node
}

// treeBuilder grows one tree. The random source is shared with the caller so
// that a whole forest consumes a single stream.
type treeBuilder struct {
	rng       *rand.Rand
	maxHeight int
	class     int
	nAttrs    int
	nodes     []node
}

// buildTree grows an isolation tree over rows.
func buildTree(rows [][]float64, nAttrs, classIndex, maxHeight int, rng *rand.Rand) *iTree {
	b := &treeBuilder{
		rng:       rng,
		maxHeight: maxHeight,
		class:     classIndex,
		nAttrs:    nAttrs,
	}
	b.grow(rows, 0)
	return &iTree{Nodes: b.nodes}
}

// grow appends the subtree for rows to the arena and returns its index.
func (b *treeBuilder) grow(rows [][]float64, height int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{Size: len(rows), Low: leaf, High: leaf})

	if len(rows) <= 1 || height == b.maxHeight {
		return idx
	}

	mins, maxs := b.ranges(rows)
	eligible := make([]int, 0, b.nAttrs)
	for j := 0; j < b.nAttrs; j++ {
		if j != b.class && mins[j] < maxs[j] {
			eligible = append(eligible, j)
		}
	}
	if len(eligible) == 0 {
		return idx
	}

	attr := eligible[b.rng.Intn(len(eligible))]
	split := b.rng.Float64()*(maxs[attr]-mins[attr]) + mins[attr]

	var low, high [][]float64
	for _, row := range rows {
		if row[attr] < split {
			low = append(low, row)
		} else {
			high = append(high, row)
		}
	}

	lowIdx := b.grow(low, height+1)
	highIdx := b.grow(high, height+1)

	// b.nodes may have been reallocated by the recursive calls.
	n := &b.nodes[idx]
	n.Attr = attr
	n.Split = split
	n.Low = lowIdx
	n.High = highIdx

	return idx
}

// ranges returns per-attribute minima and maxima over rows.
func (b *treeBuilder) ranges(rows [][]float64) (mins, maxs []float64) {
	mins = make([]float64, b.nAttrs)
	maxs = make([]float64, b.nAttrs)
	copy(mins, rows[0])
	copy(maxs, rows[0])
	for _, row := range rows[1:] {
		for j, v := range row {
			if v < mins[j] {
				mins[j] = v
			}
			if v > maxs[j] {
				maxs[j] = v
			}
		}
	}
	return mins, maxs
}

// pathLength returns the isolation path length of record in t: one per
// internal node traversed plus C(size) at the leaf.
func (t *iTree) pathLength(record []float64) float64 {
	var length float64
	n := &t.Nodes[0]
	for !n.isLeaf() {
		if record[n.Attr] < n.Split {
			n = &t.Nodes[n.Low]
		} else {
			n = &t.Nodes[n.High]
		}
		length++
	}
	return length + C(float64(n.Size))
}

// depth returns the height of the tree.
func (t *iTree) depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.isLeaf() {
			return 0
		}
		return 1 + max(walk(n.Low), walk(n.High))
	}
	return walk(0)
}

// C returns the average path length of an unsuccessful search in a binary
// search tree of n nodes, or 0 if n <= 1.
//
//	c(n) = 2*(ln(n-1) + gamma) - 2*(n-1)/n
func C(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+eulerGamma) - 2*(n-1)/n
}

// maxHeight is the height limit for trees grown on subsamples of size n.
func maxHeight(n int) int {
	return int(math.Ceil(math.Log2(float64(n))))
}

// checkRecord reports whether record can be scored against header.
func checkRecord(header *dataset.Dataset, record []float64) bool {
	return len(record) == header.NumAttributes()
}
