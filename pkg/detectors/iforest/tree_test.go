package iforest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestC(t *testing.T) {
	for _, n := range []float64{-3, 0, 0.5, 1} {
		assert.Equal(t, 0.0, C(n), "c(%v)", n)
	}

	assert.InDelta(t, 2*eulerGamma-1, C(2), 1e-12)

	prev := C(2)
	for n := 3; n <= 5000; n++ {
		cur := C(float64(n))
		require.GreaterOrEqual(t, cur, prev, "c must not decrease at n=%d", n)
		prev = cur
	}
}

func TestMaxHeight(t *testing.T) {
	assert.Equal(t, 0, maxHeight(1))
	assert.Equal(t, 1, maxHeight(2))
	assert.Equal(t, 4, maxHeight(10))
	assert.Equal(t, 8, maxHeight(256))
}

func TestBuildTreeLeafInvariant(t *testing.T) {
	rows := generateRows(rand.New(rand.NewSource(3)), 64, 3)
	tree := buildTree(rows, 3, -1, 4, rand.New(rand.NewSource(1)))

	require.NotEmpty(t, tree.Nodes)
	assert.Equal(t, 64, tree.Nodes[0].Size)
	assert.LessOrEqual(t, tree.depth(), 4)

	for i, n := range tree.Nodes {
		if n.isLeaf() {
			continue
		}
		low, high := tree.Nodes[n.Low], tree.Nodes[n.High]
		assert.Equal(t, n.Size, low.Size+high.Size, "node %d sizes must add up", i)
		assert.Greater(t, n.Size, 1, "node %d with one record must be a leaf", i)
	}
}

func TestBuildTreeSkipsConstantAttribute(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	rows := make([][]float64, 100)
	for i := range rows {
		rows[i] = []float64{7, r.NormFloat64()}
	}

	for seed := int64(0); seed < 20; seed++ {
		tree := buildTree(rows, 2, -1, 10, rand.New(rand.NewSource(seed)))
		for _, n := range tree.Nodes {
			if !n.isLeaf() {
				assert.Equal(t, 1, n.Attr, "constant attribute chosen as split")
			}
		}
	}
}

func TestBuildTreeSkipsClassAttribute(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	rows := make([][]float64, 50)
	for i := range rows {
		rows[i] = []float64{r.Float64(), float64(i % 2)}
	}

	tree := buildTree(rows, 2, 1, 10, rand.New(rand.NewSource(2)))
	for _, n := range tree.Nodes {
		if !n.isLeaf() {
			assert.Equal(t, 0, n.Attr)
		}
	}
}

func TestBuildTreeNoEligibleAttribute(t *testing.T) {
	rows := [][]float64{{1, 2}, {1, 2}, {1, 2}}
	tree := buildTree(rows, 2, -1, 5, rand.New(rand.NewSource(1)))

	require.Len(t, tree.Nodes, 1)
	assert.True(t, tree.Nodes[0].isLeaf())
	assert.Equal(t, 3, tree.Nodes[0].Size)
	assert.InDelta(t, C(3), tree.pathLength([]float64{1, 2}), 1e-12)
}

func TestPathLengthTiesGoHigh(t *testing.T) {
	tree := &iTree{Nodes: []node{
		{Size: 3, Attr: 0, Split: 5, Low: 1, High: 2},
		{Size: 1, Low: leaf, High: leaf},
		{Size: 2, Low: leaf, High: leaf},
	}}

	assert.Equal(t, 1.0, tree.pathLength([]float64{4.9}))
	assert.InDelta(t, 1+C(2), tree.pathLength([]float64{5}), 1e-12)
	assert.InDelta(t, 1+C(2), tree.pathLength([]float64{6}), 1e-12)
}

func generateRows(r *rand.Rand, n, features int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, features)
		for j := range rows[i] {
			rows[i][j] = r.NormFloat64()
		}
	}
	return rows
}
