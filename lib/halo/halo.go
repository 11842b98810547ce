/*package halo discovers which remote octree leaves must be fetched before
the local rank can evaluate interactions near the edge of its assignment.
Two implementations share one contract: FindHalos traverses recursively and
FindHalosKernel runs the accelerator-style formulation, one worker per leaf
with an explicit fixed-depth stack. For identical inputs the two must flag
exactly the same leaves; the tests enforce this bit-for-bit.*/
package halo

import (
	"math"

	"github.com/phil-mansfield/cstone/lib/cstree"
	"github.com/phil-mansfield/cstone/lib/sfc"
)

// haloBox returns the cell box of cornerstone leaf i grown by that leaf's
// interaction radius, rounded up to whole cells. Along periodic axes the box
// may extend outside the global cell range; overlap tests wrap it.
func haloBox(tree []sfc.Key, i int, radius float64, box *sfc.Box) sfc.IBox {
	level := cstree.NodeLevel(tree, i)
	b := sfc.DecodeBox(tree[i], level)

	grow := [3]int{}
	for d := 0; d < 3; d++ {
		grow[d] = int(math.Ceil(radius / box.CellWidth(d)))
	}
	return b.Grow(grow, box.Periodic)
}

// containedIn reports whether h lies fully inside the key range [lo, hi).
// It locates the smallest octree node enclosing h and checks that node's key
// interval; this can answer false for a box that does fit, but never true
// for one that does not, which is the safe direction for the fast path.
func containedIn(lo, hi sfc.Key, h sfc.IBox) bool {
	for d := 0; d < 3; d++ {
		if h.Min[d] < 0 || h.Max[d] > sfc.MaxCoord {
			return false
		}
	}

	a := sfc.EncodeCell(h.Min[0], h.Min[1], h.Min[2])
	b := sfc.EncodeCell(h.Max[0]-1, h.Max[1]-1, h.Max[2]-1)
	key, level := sfc.EnclosingNode(a, b)

	return lo <= key && key+sfc.NodeRange(level) <= hi
}

// nodeOverlaps reports whether linked node idx's cell box overlaps h.
func nodeOverlaps(ot *cstree.Octree, idx int32, h sfc.IBox,
	periodic [3]bool) bool {

	return sfc.PrefixBox(ot.Prefixes[idx]).Overlaps(h, periodic)
}

// FindHalos flags every leaf outside the local assignment [first, last)
// that could hold particles within interaction range of a local leaf. tree
// is the cornerstone leaf array behind ot, radii holds one interaction
// radius per leaf, and flags holds one slot per leaf which the caller must
// zero beforehand: discovery only ever sets flags, so repeated passes
// accumulate.
func FindHalos(ot *cstree.Octree, tree []sfc.Key, radii []float64,
	first, last int, box *sfc.Box, flags []uint8) {

	lo, hi := tree[first], tree[last]

	for i := first; i < last; i++ {
		h := haloBox(tree, i, radii[i], box)
		if containedIn(lo, hi, h) {
			// Nothing beyond the local range can collide with this leaf.
			continue
		}
		collideRecursive(ot, 0, h, lo, hi, box.Periodic, flags)
	}
}

// collideRecursive descends from linked node idx, flagging every leaf that
// overlaps h and lies outside the key range [lo, hi). Subtrees fully inside
// [lo, hi) hold only local leaves and are pruned.
func collideRecursive(ot *cstree.Octree, idx int32, h sfc.IBox,
	lo, hi sfc.Key, periodic [3]bool, flags []uint8) {

	start, end := ot.NodeKeys(idx)
	if lo <= start && end <= hi {
		return
	}
	if !nodeOverlaps(ot, idx, h, periodic) {
		return
	}

	if ot.IsLeaf(idx) {
		flags[ot.InternalToLeaf[idx]] = 1
		return
	}

	child := ot.ChildOffsets[idx]
	for s := int32(0); s < 8; s++ {
		collideRecursive(ot, child+s, h, lo, hi, periodic, flags)
	}
}
