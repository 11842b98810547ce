/*package cstree builds and rebalances "cornerstone" octrees: octrees stored
as a sorted array of leaf boundary keys rather than as linked node objects.
The array always starts at key 0, ends at sfc.NodeRange(0), and is strictly
increasing, so consecutive entries define non-overlapping leaf intervals
whose union is the whole key space. The linked form used for traversal is
derived from the array by BuildOctree.*/
package cstree

import (
	"sort"

	"github.com/phil-mansfield/cstone/lib/sfc"
	"github.com/phil-mansfield/cstone/lib/thread"
)

// maxUpdatePasses bounds the number of split/fuse passes a single Update may
// run. A tree that still violates the bucket size after this many passes is
// stuck at MaxLevel (e.g. more identical keys than fit in one bucket) and is
// returned as-is.
const maxUpdatePasses = 64

// MakeRootTree returns the coarsest valid cornerstone tree: a single leaf
// covering the entire key space.
func MakeRootTree() []sfc.Key {
	return []sfc.Key{0, sfc.NodeRange(0)}
}

// MakeUniformTree returns a cornerstone tree fully resolved to the given
// level, containing 8^level equal leaves.
func MakeUniformTree(level int) []sfc.Key {
	n := 1 << uint(3*level)
	span := sfc.NodeRange(level)

	tree := make([]sfc.Key, n+1)
	for i := range tree {
		tree[i] = sfc.Key(i) * span
	}
	return tree
}

// NodeLevel returns the level of leaf i of a cornerstone tree.
func NodeLevel(tree []sfc.Key, i int) int {
	return sfc.TreeLevel(tree[i+1] - tree[i])
}

// OctantAt returns which of its parent's eight octants the level-level node
// containing key k occupies.
func OctantAt(k sfc.Key, level int) int {
	return int((k >> uint(3*(sfc.MaxLevel-level))) & 7)
}

// findKey returns the index of the first element of keys that is >= k.
func findKey(keys []sfc.Key, k sfc.Key) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] >= k })
}

// CountNodes computes the number of particles inside every leaf of tree.
// keys must be sorted. counts must have len(tree)-1 elements. Leaves are
// counted concurrently; every leaf writes only its own slot, so the result
// is identical regardless of how the work is scheduled.
func CountNodes(tree, keys []sfc.Key, counts []uint32) {
	thread.Split(len(tree)-1, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			counts[i] = uint32(findKey(keys, tree[i+1]) -
				findKey(keys, tree[i]))
		}
	})
}

// RebalanceOps decides, for every leaf, whether the next Rebalance keeps it
// (op 1), splits it into its 8 children (op 8), or fuses it into its parent
// (op 0 for all but the first sibling). A leaf splits when its count exceeds
// bucketSize and it is above MaxLevel; eight siblings fuse when they exactly
// tile their parent, sit below minLevel, and together hold at most
// bucketSize particles. bucketSize is an inclusive bound: a leaf holding
// exactly bucketSize particles is left alone, and siblings holding exactly
// bucketSize together are still fused.
//
// The second return value is true when every op is 1, i.e. the tree already
// satisfies the bucket size everywhere it can.
func RebalanceOps(
	tree []sfc.Key, counts []uint32, bucketSize uint32, minLevel int,
) ([]int, bool) {
	n := len(tree) - 1
	ops := make([]int, n)
	converged := true

	for i := 0; i < n; i++ {
		ops[i] = 1
		level := NodeLevel(tree, i)

		if counts[i] > bucketSize && level < sfc.MaxLevel {
			ops[i] = 8
			converged = false
			continue
		}

		if level <= minLevel || level == 0 {
			continue
		}

		// A fuse is detected at the first sibling: the eight leaves
		// starting at i tile the parent exactly if and only if the parent
		// is leaf-aligned at both ends with exactly eight leaves between.
		parentSpan := sfc.NodeRange(level - 1)
		if tree[i]%parentSpan != 0 || i+8 > n ||
			tree[i+8] != tree[i]+parentSpan {
			continue
		}

		sum := uint32(0)
		for s := 0; s < 8; s++ {
			sum += counts[i+s]
		}
		if sum > bucketSize {
			continue
		}

		for s := 1; s < 8; s++ {
			ops[i+s] = 0
		}
		i += 7
		converged = false
	}

	return ops, converged
}

// Rebalance applies the ops from RebalanceOps and returns the new
// cornerstone tree. Every leaf run is replaced in place by its split or
// fused equivalent, so the output is sorted and gapless whenever the input
// was.
func Rebalance(tree []sfc.Key, ops []int) []sfc.Key {
	n := len(tree) - 1

	newIdx := make([]int, n+1)
	for i := 0; i < n; i++ {
		newIdx[i+1] = newIdx[i] + ops[i]
	}

	newTree := make([]sfc.Key, newIdx[n]+1)
	for i := 0; i < n; i++ {
		if ops[i] == 0 {
			continue
		}

		j := newIdx[i]
		newTree[j] = tree[i]
		if ops[i] == 8 {
			childSpan := sfc.NodeRange(NodeLevel(tree, i) + 1)
			for s := 1; s < 8; s++ {
				newTree[j+s] = tree[i] + sfc.Key(s)*childSpan
			}
		}
	}
	newTree[len(newTree)-1] = sfc.NodeRange(0)

	return newTree
}

// Update rebuilds tree so that, as far as MaxLevel allows, no leaf holds
// more than bucketSize particles and no eight siblings below minLevel hold
// fewer combined. keys must be sorted. It returns the new tree, the particle
// counts of its leaves, and whether every leaf actually satisfies the bucket
// size. A false return is not an error: the tree is still valid, some leaf
// at MaxLevel just holds more keys than one bucket can resolve.
func Update(
	tree, keys []sfc.Key, bucketSize uint32, minLevel int,
) ([]sfc.Key, []uint32, bool) {
	counts := make([]uint32, len(tree)-1)
	fresh := false

	for pass := 0; pass < maxUpdatePasses; pass++ {
		CountNodes(tree, keys, counts)
		fresh = true

		ops, done := RebalanceOps(tree, counts, bucketSize, minLevel)
		if done {
			break
		}

		tree = Rebalance(tree, ops)
		counts = make([]uint32, len(tree)-1)
		fresh = false
	}

	if !fresh {
		CountNodes(tree, keys, counts)
	}

	converged := true
	for i := range counts {
		if counts[i] > bucketSize {
			converged = false
			break
		}
	}
	return tree, counts, converged
}
