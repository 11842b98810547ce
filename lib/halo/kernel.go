package halo

/* kernel.go is the accelerator-style formulation of halo discovery: one
logical thread per local leaf, no recursion, no cross-thread communication.
Each thread walks the tree with a private fixed-capacity stack, and the only
shared writes are idempotent flag sets, so threads never conflict. */

import (
	"github.com/phil-mansfield/cstone/lib/cstree"
	"github.com/phil-mansfield/cstone/lib/sfc"
	"github.com/phil-mansfield/cstone/lib/thread"
)

// stackDepth bounds the per-thread traversal stack. A descent can push at
// most seven siblings per level, so 8*MaxLevel slots can never overflow.
const stackDepth = 8 * sfc.MaxLevel

// FindHalosKernel is FindHalos restated without recursion. It has the exact
// same contract and must set the exact same flags; it exists because the
// per-leaf loop body is the form that runs on devices where recursion is
// unavailable. Leaves are processed concurrently, one contiguous block per
// worker.
func FindHalosKernel(ot *cstree.Octree, tree []sfc.Key, radii []float64,
	first, last int, box *sfc.Box, flags []uint8) {

	lo, hi := tree[first], tree[last]

	thread.Split(last-first, func(jlo, jhi int) {
		var stack [stackDepth]int32

		for j := jlo; j < jhi; j++ {
			i := first + j

			h := haloBox(tree, i, radii[i], box)
			if containedIn(lo, hi, h) {
				continue
			}

			// Iterative descent from the root.
			stack[0] = 0
			top := 1
			for top > 0 {
				top--
				idx := stack[top]

				start, end := ot.NodeKeys(idx)
				if lo <= start && end <= hi {
					continue
				}
				if !nodeOverlaps(ot, idx, h, box.Periodic) {
					continue
				}

				if ot.IsLeaf(idx) {
					flags[ot.InternalToLeaf[idx]] = 1
					continue
				}

				child := ot.ChildOffsets[idx]
				// Children are pushed in reverse so they pop in ascending
				// key order, matching the recursive traversal.
				for s := int32(7); s >= 0; s-- {
					stack[top] = child + s
					top++
				}
			}
		}
	})
}
