package sfc

/* box.go contains the global coordinate box and the integer cell boxes that
octree nodes decode to. */

// Box is the global coordinate box of the simulation. Width gives the side
// lengths, and Periodic marks the axes with periodic boundary conditions.
type Box struct {
	Origin   [3]float64
	Width    [3]float64
	Periodic [3]bool
}

// NewCube returns a cube-shaped Box with the given origin and side length.
// All three axes share the same periodicity.
func NewCube(origin [3]float64, width float64, periodic bool) *Box {
	return &Box{
		Origin:   origin,
		Width:    [3]float64{width, width, width},
		Periodic: [3]bool{periodic, periodic, periodic},
	}
}

// CellWidth returns the side length of one MaxLevel cell along dim.
func (b *Box) CellWidth(dim int) float64 {
	return b.Width[dim] / MaxCoord
}

// IBox is a box in integer cell coordinates at MaxLevel, half-open along
// each axis: it covers cells with Min[d] <= c < Max[d]. Halo boxes around
// nodes near a periodic boundary may extend below 0 or beyond MaxCoord;
// overlap tests interpret those coordinates modulo MaxCoord.
type IBox struct {
	Min, Max [3]int
}

// DecodeBox returns the IBox covered by the node with the given key and
// level.
func DecodeBox(key Key, level int) IBox {
	ix, iy, iz := Decode(key)
	size := 1 << uint(MaxLevel-level)
	return IBox{
		Min: [3]int{ix, iy, iz},
		Max: [3]int{ix + size, iy + size, iz + size},
	}
}

// PrefixBox returns the IBox of the node encoded by a placeholder-bit
// prefix.
func PrefixBox(p Key) IBox {
	return DecodeBox(DecodePrefix(p), PrefixLevel(p))
}

// RangeIBox returns the smallest cell box containing every key in
// [lo, hi). It walks the maximal aligned nodes spanning the range and
// unions their boxes, so the bound is tight in cells even when the range
// crosses a high-level node boundary.
func RangeIBox(lo, hi Key) IBox {
	out := IBox{
		Min: [3]int{MaxCoord, MaxCoord, MaxCoord},
		Max: [3]int{0, 0, 0},
	}

	for start := lo; start < hi; {
		// The largest node aligned at start that still fits in the range.
		level := MaxLevel
		for level > 0 && start%NodeRange(level-1) == 0 &&
			start+NodeRange(level-1) <= hi {
			level--
		}

		b := DecodeBox(start, level)
		for d := 0; d < 3; d++ {
			if b.Min[d] < out.Min[d] {
				out.Min[d] = b.Min[d]
			}
			if b.Max[d] > out.Max[d] {
				out.Max[d] = b.Max[d]
			}
		}

		start += NodeRange(level)
	}

	return out
}

// Grow expands the box by n cells along every axis. Axes marked periodic are
// left unclamped so the overflow can wrap; non-periodic axes are clamped to
// the global cell range.
func (b IBox) Grow(n [3]int, periodic [3]bool) IBox {
	out := IBox{}
	for d := 0; d < 3; d++ {
		out.Min[d] = b.Min[d] - n[d]
		out.Max[d] = b.Max[d] + n[d]
		if !periodic[d] {
			if out.Min[d] < 0 {
				out.Min[d] = 0
			}
			if out.Max[d] > MaxCoord {
				out.Max[d] = MaxCoord
			}
		}
	}
	return out
}

// Overlaps reports whether two cell boxes share any cell. Either box may
// extend outside [0, MaxCoord) along a periodic axis; the test compares the
// boxes at every periodic image, so an overhanging box meets boxes at the
// far end of the axis.
func (b IBox) Overlaps(other IBox, periodic [3]bool) bool {
	for d := 0; d < 3; d++ {
		if !overlap1D(b.Min[d], b.Max[d], other.Min[d], other.Max[d],
			periodic[d]) {
			return false
		}
	}
	return true
}

func overlap1D(a0, a1, b0, b1 int, periodic bool) bool {
	if a0 < b1 && b0 < a1 {
		return true
	}
	if !periodic {
		return false
	}
	return (a0+MaxCoord < b1 && b0 < a1+MaxCoord) ||
		(a0-MaxCoord < b1 && b0 < a1-MaxCoord)
}
