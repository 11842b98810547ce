/*package neighbors answers per-particle radius queries against a linked
octree. The physics kernels downstream consume the index lists it returns.*/
package neighbors

import (
	"sort"

	"github.com/phil-mansfield/cstone/lib/cstree"
	"github.com/phil-mansfield/cstone/lib/sfc"
)

// Find collects the particles within radius of particle i, excluding i
// itself. Particles at exactly the search radius are included. x, y, and z
// are particle positions sorted by their keys, keys is the matching sorted
// key array, and tree is the cornerstone leaf array behind ot.
//
// Up to len(out) indices are stored in out. The return value is the true
// number of neighbors found, which can exceed len(out): a full out is a
// documented truncation, not an error, and the caller can compare the
// return value against len(out) to detect it.
func Find(ot *cstree.Octree, tree, keys []sfc.Key, x, y, z []float64,
	i int, radius float64, box *sfc.Box, out []int) int {

	found := 0
	r2 := radius * radius
	xi, yi, zi := x[i], y[i], z[i]

	var descend func(idx int32)
	descend = func(idx int32) {
		if minDist2(xi, yi, zi, nodeBounds(ot, idx, box), box) > r2 {
			return
		}

		if !ot.IsLeaf(idx) {
			child := ot.ChildOffsets[idx]
			for s := int32(0); s < 8; s++ {
				descend(child + s)
			}
			return
		}

		leaf := ot.InternalToLeaf[idx]
		lo := findKey(keys, tree[leaf])
		hi := findKey(keys, tree[leaf+1])
		for j := lo; j < hi; j++ {
			if j == i {
				continue
			}
			dx := minImage(x[j]-xi, box, 0)
			dy := minImage(y[j]-yi, box, 1)
			dz := minImage(z[j]-zi, box, 2)
			if dx*dx+dy*dy+dz*dz <= r2 {
				if found < len(out) {
					out[found] = j
				}
				found++
			}
		}
	}
	descend(0)

	return found
}

func findKey(keys []sfc.Key, k sfc.Key) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] >= k })
}

// bounds is a node's coordinate box as [min, max] per axis.
type bounds struct {
	min, max [3]float64
}

func nodeBounds(ot *cstree.Octree, idx int32, box *sfc.Box) bounds {
	ib := sfc.PrefixBox(ot.Prefixes[idx])
	b := bounds{}
	for d := 0; d < 3; d++ {
		cw := box.CellWidth(d)
		b.min[d] = box.Origin[d] + float64(ib.Min[d])*cw
		b.max[d] = box.Origin[d] + float64(ib.Max[d])*cw
	}
	return b
}

// minDist2 returns the squared distance from point p to the closest point of
// b, with periodic wrapping where the box calls for it.
func minDist2(px, py, pz float64, b bounds, box *sfc.Box) float64 {
	p := [3]float64{px, py, pz}
	d2 := 0.0
	for d := 0; d < 3; d++ {
		dd := axisDist(p[d], b.min[d], b.max[d], box.Width[d],
			box.Periodic[d])
		d2 += dd * dd
	}
	return d2
}

func axisDist(p, lo, hi, L float64, periodic bool) float64 {
	d := gapDist(p, lo, hi)
	if !periodic {
		return d
	}
	if dShift := gapDist(p+L, lo, hi); dShift < d {
		d = dShift
	}
	if dShift := gapDist(p-L, lo, hi); dShift < d {
		d = dShift
	}
	return d
}

func gapDist(p, lo, hi float64) float64 {
	switch {
	case p < lo:
		return lo - p
	case p > hi:
		return p - hi
	default:
		return 0
	}
}

// minImage maps a coordinate difference to its minimum periodic image.
func minImage(dx float64, box *sfc.Box, dim int) float64 {
	if !box.Periodic[dim] {
		return dx
	}
	L := box.Width[dim]
	if dx > L/2 {
		dx -= L
	}
	if dx < -L/2 {
		dx += L
	}
	return dx
}
