package cstree

/* octree.go derives a fully linked octree from a cornerstone leaf array.
Nodes live in flat parallel arrays addressed by index, never by pointer, so
the tree can be traversed concurrently without synchronization and mirrored
onto accelerator memory unchanged. */

import (
	"sort"

	"github.com/phil-mansfield/cstone/lib/sfc"
)

// Octree is the linked form of a cornerstone tree. Node 0 is the root.
// Internal nodes have exactly eight children stored contiguously starting at
// ChildOffsets[i]; leaves have ChildOffsets[i] == 0. The two permutation
// arrays map between linked-node indices and cornerstone leaf indices.
type Octree struct {
	// Prefixes holds each node's placeholder-bit prefix, encoding its key
	// and level in one integer.
	Prefixes []sfc.Key
	// ChildOffsets[i] is the index of the first of node i's eight children,
	// or 0 if node i is a leaf.
	ChildOffsets []int32
	// Parents[i] is the index of node i's parent. The root's parent is 0.
	Parents []int32
	// InternalToLeaf[i] is the cornerstone leaf index of node i, or -1 if
	// node i is internal.
	InternalToLeaf []int32
	// LeafToInternal[j] is the linked-node index of cornerstone leaf j.
	LeafToInternal []int32
}

// NumNodes returns the total node count, leaves and internal nodes.
func (ot *Octree) NumNodes() int { return len(ot.Prefixes) }

// NumLeaves returns the leaf count.
func (ot *Octree) NumLeaves() int { return len(ot.LeafToInternal) }

// IsLeaf reports whether linked node i is a leaf.
func (ot *Octree) IsLeaf(i int32) bool { return ot.ChildOffsets[i] == 0 }

// NodeKeys returns the key interval [start, end) covered by linked node i.
func (ot *Octree) NodeKeys(i int32) (start, end sfc.Key) {
	start = sfc.DecodePrefix(ot.Prefixes[i])
	return start, start + sfc.NodeRange(sfc.PrefixLevel(ot.Prefixes[i]))
}

// BuildOctree links the leaves of a cornerstone tree into a full octree.
// Because a cornerstone tree only ever splits nodes eight ways, the leaves
// inside any internal node's key interval partition it exactly, so every
// internal node gets exactly eight children.
func BuildOctree(tree []sfc.Key) *Octree {
	numLeaves := len(tree) - 1
	numInternal := (numLeaves - 1) / 7

	ot := &Octree{
		Prefixes:       make([]sfc.Key, 0, numLeaves+numInternal),
		ChildOffsets:   make([]int32, 0, numLeaves+numInternal),
		Parents:        make([]int32, 0, numLeaves+numInternal),
		InternalToLeaf: make([]int32, 0, numLeaves+numInternal),
		LeafToInternal: make([]int32, numLeaves),
	}

	// Leaf runs in cornerstone order, parallel to the node arrays while
	// they are built: node i covers leaves [leafLo[i], leafHi[i]).
	leafLo := make([]int32, 0, numLeaves+numInternal)
	leafHi := make([]int32, 0, numLeaves+numInternal)

	push := func(lo, hi int32, key sfc.Key, level int, parent int32) {
		ot.Prefixes = append(ot.Prefixes, sfc.EncodePrefix(key, level))
		ot.ChildOffsets = append(ot.ChildOffsets, 0)
		ot.Parents = append(ot.Parents, parent)
		ot.InternalToLeaf = append(ot.InternalToLeaf, -1)
		leafLo = append(leafLo, lo)
		leafHi = append(leafHi, hi)
	}

	push(0, int32(numLeaves), 0, 0, 0)

	// Children are appended in one contiguous block per internal node, so a
	// single forward sweep visits parents before children.
	for i := 0; i < len(ot.Prefixes); i++ {
		lo, hi := leafLo[i], leafHi[i]
		if hi-lo == 1 {
			ot.InternalToLeaf[i] = lo
			ot.LeafToInternal[lo] = int32(i)
			continue
		}

		key := sfc.DecodePrefix(ot.Prefixes[i])
		level := sfc.PrefixLevel(ot.Prefixes[i])
		childSpan := sfc.NodeRange(level + 1)

		ot.ChildOffsets[i] = int32(len(ot.Prefixes))
		childLo := lo
		for s := 0; s < 7; s++ {
			childEnd := key + sfc.Key(s+1)*childSpan
			childHi := int32(sort.Search(int(hi-lo), func(j int) bool {
				return tree[lo+int32(j)] >= childEnd
			})) + lo
			push(childLo, childHi, key+sfc.Key(s)*childSpan, level+1,
				int32(i))
			childLo = childHi
		}
		push(childLo, hi, key+7*childSpan, level+1, int32(i))
	}

	return ot
}
