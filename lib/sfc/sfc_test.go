package sfc

import (
	"math/rand"
	"testing"
)

func TestSpreadCompact(t *testing.T) {
	tests := []uint64{0, 1, 2, 0x15555, 0x1fffff, 0x100000, 0xabcde}

	for i := range tests {
		out := compact3(spread3(tests[i]))
		if out != tests[i] {
			t.Errorf("%d) compact3(spread3(%x)) = %x.", i, tests[i], out)
		}
	}
}

func TestEncodeCellDecode(t *testing.T) {
	tests := [][3]int{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{MaxCoord - 1, MaxCoord - 1, MaxCoord - 1},
		{123456, 654321, 2},
	}

	for i := range tests {
		ix, iy, iz := Decode(EncodeCell(
			tests[i][0], tests[i][1], tests[i][2]))
		if ix != tests[i][0] || iy != tests[i][1] || iz != tests[i][2] {
			t.Errorf("%d) Decode(EncodeCell(%d)) = (%d, %d, %d).",
				i, tests[i], ix, iy, iz)
		}
	}
}

func TestEncodeContainsPoint(t *testing.T) {
	box := NewCube([3]float64{0, 0, 0}, 100.0, true)
	rand.Seed(1)

	for i := 0; i < 1000; i++ {
		x := rand.Float64() * 100
		y := rand.Float64() * 100
		z := rand.Float64() * 100

		ix, iy, iz := Decode(Encode(x, y, z, box))

		cw := box.CellWidth(0)
		p, c := [3]float64{x, y, z}, [3]int{ix, iy, iz}
		for d := 0; d < 3; d++ {
			lo, hi := float64(c[d])*cw, float64(c[d]+1)*cw
			if p[d] < lo || p[d] >= hi {
				t.Errorf("%d) Point %.4f decoded to cell [%.4f, %.4f) "+
					"along axis %d.", i, p[d], lo, hi, d)
			}
		}
	}
}

func TestEncodeUpperEdge(t *testing.T) {
	box := NewCube([3]float64{0, 0, 0}, 1.0, false)
	ix, iy, iz := Decode(Encode(1.0, 1.0, 1.0, box))
	if ix != MaxCoord-1 || iy != MaxCoord-1 || iz != MaxCoord-1 {
		t.Errorf("Upper box edge encoded to cell (%d, %d, %d).", ix, iy, iz)
	}
}

func TestNodeRangeTreeLevel(t *testing.T) {
	for level := 0; level <= MaxLevel; level++ {
		if out := TreeLevel(NodeRange(level)); out != level {
			t.Errorf("TreeLevel(NodeRange(%d)) = %d.", level, out)
		}
	}
	if NodeRange(0) != 1<<63 {
		t.Errorf("NodeRange(0) = %x.", NodeRange(0))
	}
}

func TestPrefixRoundTrip(t *testing.T) {
	rand.Seed(2)

	for i := 0; i < 1000; i++ {
		level := rand.Intn(MaxLevel + 1)
		key := Key(rand.Uint64()) % NodeRange(0)
		key &^= NodeRange(level) - 1

		p := EncodePrefix(key, level)
		if out := DecodePrefix(p); out != key {
			t.Errorf("%d) DecodePrefix(EncodePrefix(%x, %d)) = %x.",
				i, key, level, out)
		}
		if out := PrefixLevel(p); out != level {
			t.Errorf("%d) PrefixLevel(EncodePrefix(%x, %d)) = %d.",
				i, key, level, out)
		}
	}
}

func TestPrefixAncestry(t *testing.T) {
	// An ancestor's prefix must be a numeric bit-prefix of every
	// descendant's prefix.
	rand.Seed(3)

	for i := 0; i < 1000; i++ {
		key := Key(rand.Uint64()) % NodeRange(0)
		deep := rand.Intn(MaxLevel) + 1
		shallow := rand.Intn(deep)

		pDeep := EncodePrefix(key&^(NodeRange(deep)-1), deep)
		pShallow := EncodePrefix(key&^(NodeRange(shallow)-1), shallow)

		if pDeep>>(3*uint(deep-shallow)) != pShallow {
			t.Errorf("%d) Prefix at level %d is not a bit-prefix of the "+
				"level-%d prefix of key %x.", i, shallow, deep, key)
		}
	}
}

func TestEnclosingNode(t *testing.T) {
	tests := []struct {
		lo, hi Key
		level  int
	}{
		{0, 0, MaxLevel},
		{0, NodeRange(0) - 1, 0},
		{0, NodeRange(1) - 1, 1},
		{NodeRange(1), 2*NodeRange(1) - 1, 1},
		{NodeRange(1), NodeRange(1) + NodeRange(2) - 1, 2},
	}

	for i := range tests {
		key, level := EnclosingNode(tests[i].lo, tests[i].hi)
		if level != tests[i].level {
			t.Errorf("%d) EnclosingNode level = %d, not %d.",
				i, level, tests[i].level)
		}
		span := NodeRange(level)
		if key > tests[i].lo || tests[i].hi >= key+span {
			t.Errorf("%d) EnclosingNode = [%x, %x) does not contain "+
				"[%x, %x].", i, key, key+span, tests[i].lo, tests[i].hi)
		}
	}
}
