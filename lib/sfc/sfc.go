/*package sfc converts between 3D particle coordinates and space-filling-curve
keys, and between tree-node addresses and their "placeholder bit" prefix
encoding. Keys sort particles into an order that approximately preserves
spatial locality, which is what lets the rest of the library describe spatial
regions as contiguous key ranges.*/
package sfc

import (
	"math/bits"
)

const (
	// MaxLevel is the deepest level of the octree. Each level consumes three
	// bits of the key, so a 64-bit key supports 21 levels with one bit left
	// over for the placeholder-bit prefix encoding.
	MaxLevel = 21
	// MaxCoord is the number of cells per axis at MaxLevel.
	MaxCoord = 1 << MaxLevel
)

// Key is a space-filling-curve (Morton) key. The low 3*MaxLevel = 63 bits
// interleave the quantized x, y, and z coordinates of a position. Keys are
// compared as plain integers: sorting particles by Key groups the particles
// of every octree node, at every level, into a contiguous run.
type Key uint64

// NodeRange returns the width of the key interval covered by a single node
// at the given level. NodeRange(0) is the end of the entire key space.
func NodeRange(level int) Key {
	return 1 << uint(3*(MaxLevel-level))
}

// TreeLevel returns the level of a node whose key interval has the given
// width. It is the inverse of NodeRange.
func TreeLevel(span Key) int {
	return MaxLevel - bits.TrailingZeros64(uint64(span))/3
}

// spread3 spaces the low 21 bits of v three bits apart.
func spread3(v uint64) uint64 {
	v &= 0x1fffff
	v = (v | v<<32) & 0x001f00000000ffff
	v = (v | v<<16) & 0x001f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

// compact3 is the inverse of spread3: it collects every third bit of v into
// the low 21 bits.
func compact3(v uint64) uint64 {
	v &= 0x1249249249249249
	v = (v ^ v>>2) & 0x10c30c30c30c30c3
	v = (v ^ v>>4) & 0x100f00f00f00f00f
	v = (v ^ v>>8) & 0x001f0000ff0000ff
	v = (v ^ v>>16) & 0x001f00000000ffff
	v = (v ^ v>>32) & 0x00000000001fffff
	return v
}

// EncodeCell converts integer cell coordinates at MaxLevel into a Key. The
// coordinates must be in [0, MaxCoord).
func EncodeCell(ix, iy, iz int) Key {
	return Key(spread3(uint64(ix)) |
		spread3(uint64(iy))<<1 |
		spread3(uint64(iz))<<2)
}

// Decode converts a Key back into the integer cell coordinates of the
// MaxLevel cell it addresses. It is the inverse of EncodeCell.
func Decode(k Key) (ix, iy, iz int) {
	ix = int(compact3(uint64(k)))
	iy = int(compact3(uint64(k) >> 1))
	iz = int(compact3(uint64(k) >> 2))
	return ix, iy, iz
}

// Encode quantizes a position inside box to cell coordinates at MaxLevel and
// returns its Key. Positions are assumed to already lie inside the box: the
// caller is responsible for wrapping or clamping them beforehand. The upper
// box edge itself quantizes to the last cell so that points exactly on the
// boundary stay representable.
func Encode(x, y, z float64, box *Box) Key {
	return EncodeCell(
		quantize(x, box.Origin[0], box.Width[0]),
		quantize(y, box.Origin[1], box.Width[1]),
		quantize(z, box.Origin[2], box.Width[2]),
	)
}

func quantize(x, origin, width float64) int {
	i := int((x - origin) / width * MaxCoord)
	if i >= MaxCoord {
		i = MaxCoord - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// EncodePrefix combines a node's key and level into a single integer by
// prepending a marker bit above the key's leading 3*level bits. Prefixes
// have the property that an ancestor's prefix is a numeric bit-prefix of
// every descendant's prefix, so ancestry tests become shift-and-compare.
func EncodePrefix(key Key, level int) Key {
	n := uint(3 * level)
	return (key >> (uint(3*MaxLevel) - n)) + (1 << n)
}

// DecodePrefix strips the marker bit from a prefix and returns the node's
// key, i.e. the smallest MaxLevel key inside the node.
func DecodePrefix(p Key) Key {
	n := uint(63 - bits.LeadingZeros64(uint64(p)))
	return (p - (1 << n)) << (uint(3*MaxLevel) - n)
}

// PrefixLevel returns the tree level encoded in a prefix.
func PrefixLevel(p Key) int {
	return (63 - bits.LeadingZeros64(uint64(p))) / 3
}

// CommonPrefixBits returns the number of leading key bits (out of 63) shared
// by two keys. Dividing by three gives the level of the deepest node
// containing both.
func CommonPrefixBits(a, b Key) int {
	if a == b {
		return 3 * MaxLevel
	}
	return bits.LeadingZeros64(uint64(a^b)) - 1
}

// EnclosingNode returns the key and level of the smallest octree node that
// contains every key in the inclusive range [lo, hi].
func EnclosingNode(lo, hi Key) (key Key, level int) {
	level = CommonPrefixBits(lo, hi) / 3
	span := NodeRange(level)
	return lo &^ (span - 1), level
}
