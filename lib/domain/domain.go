/*package domain splits the global key space into per-rank assignments and
works out which ranks are close enough to exchange halo particles. It only
decides what the assignments and peer sets are: moving particle data between
ranks is the transport layer's job.*/
package domain

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/phil-mansfield/cstone/lib/sfc"
)

// Comm identifies the calling rank within the set of compute nodes. It is
// passed explicitly instead of being read from ambient process state so that
// multi-rank logic stays testable in a single process.
type Comm struct {
	Rank, Size int
}

// Decompose splits the key space into p contiguous ranges, one per rank,
// with approximately equal particle counts. tree and counts describe the
// current cornerstone octree. The returned p+1 boundary keys are always
// leaf boundaries of tree: a leaf is never split across two ranks, so each
// range's count deviates from the ideal N/p by at most one leaf's count.
func Decompose(tree []sfc.Key, counts []uint32, p int) ([]sfc.Key, error) {
	n := len(tree) - 1
	if p < 1 || p > n {
		return nil, fmt.Errorf("Cannot decompose a tree with %d leaves "+
			"into %d ranges. The range count must be between 1 and the "+
			"leaf count.", n, p)
	}

	cum := make([]uint64, n+1)
	for i := 0; i < n; i++ {
		cum[i+1] = cum[i] + uint64(counts[i])
	}
	total := cum[n]

	boundaries := make([]sfc.Key, p+1)
	boundaries[p] = sfc.NodeRange(0)

	prev := 0
	for k := 1; k < p; k++ {
		target := total * uint64(k) / uint64(p)

		j := sort.Search(n+1, func(i int) bool { return cum[i] >= target })
		// cum[j-1] may be closer to the target than cum[j].
		if j > 0 && j <= n && target-cum[j-1] < cum[j]-target {
			j--
		}

		// Ranges must stay non-empty in leaves even when many leaves hold
		// no particles, so later boundaries still have room.
		if j <= prev {
			j = prev + 1
		}
		if j > n-(p-k) {
			j = n - (p - k)
		}

		boundaries[k] = tree[j]
		prev = j
	}

	return boundaries, nil
}

// boundaryLeaf returns the leaf index of a decomposition boundary within
// tree. Boundaries produced by Decompose are always leaf-aligned.
func boundaryLeaf(tree []sfc.Key, b sfc.Key) int {
	return sort.Search(len(tree), func(i int) bool { return tree[i] >= b })
}

// LeafRange returns the half-open cornerstone leaf index range assigned to
// rank.
func LeafRange(tree, boundaries []sfc.Key, rank int) (first, last int) {
	return boundaryLeaf(tree, boundaries[rank]),
		boundaryLeaf(tree, boundaries[rank+1])
}

// RangeCount returns the number of particles assigned to rank.
func RangeCount(tree []sfc.Key, counts []uint32, boundaries []sfc.Key,
	rank int) uint64 {

	first, last := LeafRange(tree, boundaries, rank)
	n := uint64(0)
	for i := first; i < last; i++ {
		n += uint64(counts[i])
	}
	return n
}

// Imbalance returns the ratio of the most loaded rank's particle count to
// the mean count. 1 is a perfect split.
func Imbalance(tree []sfc.Key, counts []uint32, boundaries []sfc.Key) float64 {
	p := len(boundaries) - 1
	loads := make([]float64, p)
	max := 0.0
	for r := 0; r < p; r++ {
		loads[r] = float64(RangeCount(tree, counts, boundaries, r))
		if loads[r] > max {
			max = loads[r]
		}
	}

	mean := stat.Mean(loads, nil)
	if mean == 0 {
		return 1
	}
	return max / mean
}

// HaloCounts returns, per rank, how many of the flagged halo leaves that
// rank owns under the given decomposition. The exchange layer uses this to
// size its requests; this package does not itself move any data.
func HaloCounts(tree, boundaries []sfc.Key, flags []uint8) []int {
	p := len(boundaries) - 1
	out := make([]int, p)

	r := 0
	for i := range flags {
		if flags[i] == 0 {
			continue
		}
		for tree[i] >= boundaries[r+1] {
			r++
		}
		out[r]++
	}
	return out
}
