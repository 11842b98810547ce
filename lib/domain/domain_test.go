package domain

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/cstone/lib/cstree"
	"github.com/phil-mansfield/cstone/lib/sfc"
)

// gridState builds the standard test tree: an n^3 uniform grid decomposed
// with the given bucket size.
func gridState(t *testing.T, n int, spacing, width float64,
	bucketSize uint32) (tree []sfc.Key, counts []uint32, box *sfc.Box) {
	t.Helper()

	box = sfc.NewCube([3]float64{0, 0, 0}, width, true)
	keys := []sfc.Key{}
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				keys = append(keys, sfc.Encode(spacing*float64(i),
					spacing*float64(j), spacing*float64(k), box))
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	tree, counts, converged := cstree.Update(
		cstree.MakeRootTree(), keys, bucketSize, 0)
	require.True(t, converged)
	return tree, counts, box
}

func TestDecomposeInvariants(t *testing.T) {
	tree, counts, _ := gridState(t, 10, 0.5, 5.0, 64)
	numLeaves := len(tree) - 1

	for _, p := range []int{1, 2, 3, 4, 7, numLeaves} {
		boundaries, err := Decompose(tree, counts, p)
		require.NoError(t, err)
		require.Len(t, boundaries, p+1)

		assert.Equal(t, sfc.Key(0), boundaries[0])
		assert.Equal(t, sfc.NodeRange(0), boundaries[p])

		for k := 0; k < p; k++ {
			assert.Less(t, boundaries[k], boundaries[k+1],
				"ranges must be non-empty and ordered")
		}

		// Every boundary must land exactly on a leaf boundary.
		for k := range boundaries {
			i := sort.Search(len(tree), func(j int) bool {
				return tree[j] >= boundaries[k]
			})
			require.Less(t, i, len(tree))
			assert.Equal(t, tree[i], boundaries[k],
				"boundary %d is not leaf-aligned", k)
		}
	}
}

func TestDecomposeBalance(t *testing.T) {
	tree, counts, _ := gridState(t, 10, 0.5, 5.0, 64)

	maxLeaf := uint64(0)
	for i := range counts {
		if uint64(counts[i]) > maxLeaf {
			maxLeaf = uint64(counts[i])
		}
	}

	p := 4
	boundaries, err := Decompose(tree, counts, p)
	require.NoError(t, err)

	total := uint64(0)
	for r := 0; r < p; r++ {
		n := RangeCount(tree, counts, boundaries, r)
		total += n

		ideal := uint64(1000 / p)
		assert.LessOrEqual(t, n, ideal+maxLeaf,
			"rank %d holds too many particles", r)
		assert.GreaterOrEqual(t, n+maxLeaf, ideal,
			"rank %d holds too few particles", r)
	}
	assert.Equal(t, uint64(1000), total)
}

func TestDecomposeErrors(t *testing.T) {
	tree, counts, _ := gridState(t, 4, 1.0, 4.0, 8)

	_, err := Decompose(tree, counts, 0)
	assert.Error(t, err)
	_, err = Decompose(tree, counts, len(tree))
	assert.Error(t, err)
}

func TestDecomposeEmptyLeaves(t *testing.T) {
	// Most leaves hold nothing: boundaries must still be strictly
	// increasing so no rank gets an empty key range.
	tree := cstree.MakeUniformTree(1)
	counts := []uint32{1000, 0, 0, 0, 0, 0, 0, 0}

	boundaries, err := Decompose(tree, counts, 4)
	require.NoError(t, err)
	for k := 0; k < 4; k++ {
		assert.Less(t, boundaries[k], boundaries[k+1])
	}
}

func TestDecomposeStability(t *testing.T) {
	// A small shift in the distribution must only produce a small shift in
	// the boundaries.
	tree := cstree.MakeUniformTree(2)
	counts := make([]uint32, len(tree)-1)
	for i := range counts {
		counts[i] = 10
	}

	before, err := Decompose(tree, counts, 8)
	require.NoError(t, err)

	counts[0] += 2
	counts[len(counts)-1] += 3
	after, err := Decompose(tree, counts, 8)
	require.NoError(t, err)

	for k := range before {
		iBefore := sort.Search(len(tree), func(j int) bool {
			return tree[j] >= before[k]
		})
		iAfter := sort.Search(len(tree), func(j int) bool {
			return tree[j] >= after[k]
		})
		diff := iBefore - iAfter
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, 1,
			"boundary %d moved %d leaves after a 5-particle shift", k, diff)
	}
}

func TestImbalance(t *testing.T) {
	tree := cstree.MakeUniformTree(1)
	counts := []uint32{10, 10, 10, 10, 10, 10, 10, 10}
	boundaries, err := Decompose(tree, counts, 4)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, Imbalance(tree, counts, boundaries), 1e-10)

	counts = []uint32{80, 0, 0, 0, 0, 0, 0, 0}
	assert.InDelta(t, 4.0, Imbalance(tree, counts, boundaries), 1e-10)
}

func TestHaloCounts(t *testing.T) {
	tree := cstree.MakeUniformTree(1)
	boundaries := []sfc.Key{0, tree[2], tree[4], sfc.NodeRange(0)}

	flags := []uint8{1, 0, 1, 1, 0, 0, 0, 1}
	assert.Equal(t, []int{1, 2, 1}, HaloCounts(tree, boundaries, flags))
}
