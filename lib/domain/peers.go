package domain

/* peers.go finds the ranks whose assignments lie within interaction range
of the local assignment. */

import (
	"github.com/phil-mansfield/cstone/lib/sfc"
)

// Bounds is an axis-aligned coordinate box described by its origin and side
// lengths. Along periodic axes the origin is taken modulo the global box
// width, so a Bounds may represent a region that wraps around the boundary.
type Bounds struct {
	Origin, Span [3]float64
}

// RangeBox returns the coordinate bounds of the key range [lo, hi): the
// tightest axis-aligned box containing every cell of the range. It can
// over-approximate the region a rank's particles actually occupy, but never
// under-approximates it, which is the direction peer search needs.
func RangeBox(lo, hi sfc.Key, box *sfc.Box) Bounds {
	ibox := sfc.RangeIBox(lo, hi)

	b := Bounds{}
	for d := 0; d < 3; d++ {
		cw := box.CellWidth(d)
		b.Origin[d] = box.Origin[d] + float64(ibox.Min[d])*cw
		b.Span[d] = float64(ibox.Max[d]-ibox.Min[d]) * cw
	}
	return b
}

// Expand grows the bounds by r on every side, clamping against the global
// box along non-periodic axes.
func (b Bounds) Expand(r float64, box *sfc.Box) Bounds {
	out := Bounds{}
	for d := 0; d < 3; d++ {
		lo, hi := b.Origin[d]-r, b.Origin[d]+b.Span[d]+r
		if !box.Periodic[d] {
			if lo < box.Origin[d] {
				lo = box.Origin[d]
			}
			if hi > box.Origin[d]+box.Width[d] {
				hi = box.Origin[d] + box.Width[d]
			}
		}
		out.Origin[d], out.Span[d] = lo, hi-lo
	}
	return out
}

// Intersect returns true if the two bounds overlap inside box, accounting
// for wraparound along periodic axes.
func (b1 Bounds) Intersect(b2 Bounds, box *sfc.Box) bool {
	for d := 0; d < 3; d++ {
		if !intersect1D(b1.Origin[d], b1.Span[d], b2.Origin[d], b2.Span[d],
			box.Width[d], box.Periodic[d]) {
			return false
		}
	}
	return true
}

func intersect1D(x1, w1, x2, w2, L float64, periodic bool) bool {
	if !periodic {
		return x1 < x2+w2 && x2 < x1+w1
	}
	return oneWayIntersect(x1, w1, x2, L) || oneWayIntersect(x2, w2, x1, L)
}

func oneWayIntersect(x1, w1, x2, L float64) bool {
	if x1 > x2 {
		x1 -= L
	}
	return x1+w1 > x2
}

// FindPeers returns the ranks whose assigned ranges can hold particles
// within interaction range of rank c.Rank's range. boundaries is the
// decomposition from Decompose and radii holds each rank's maximum
// interaction radius. The local bounds are expanded by the larger of the two
// ranks' radii before the overlap test, so peer relations are symmetric and
// no in-range rank is ever missed. Ranks that merely share a face but hold
// no in-range particles can still be reported: false positives cost
// bandwidth, not correctness.
func FindPeers(c Comm, boundaries []sfc.Key, radii []float64,
	box *sfc.Box) []int {

	local := RangeBox(boundaries[c.Rank], boundaries[c.Rank+1], box)

	peers := []int{}
	for r := 0; r < c.Size; r++ {
		if r == c.Rank {
			continue
		}

		radius := radii[c.Rank]
		if radii[r] > radius {
			radius = radii[r]
		}

		remote := RangeBox(boundaries[r], boundaries[r+1], box)
		if local.Expand(radius, box).Intersect(remote, box) {
			peers = append(peers, r)
		}
	}

	return peers
}
