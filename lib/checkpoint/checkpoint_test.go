package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phil-mansfield/cstone/lib/cstree"
	"github.com/phil-mansfield/cstone/lib/eq"
	"github.com/phil-mansfield/cstone/lib/sfc"
)

func testState() *State {
	tree := cstree.MakeUniformTree(1)
	return &State{
		Box:        *sfc.NewCube([3]float64{0, 0, 0}, 62.5, true),
		Keys:       []sfc.Key{0, 1, 100, sfc.NodeRange(1), sfc.NodeRange(0) - 1},
		Tree:       tree,
		Counts:     []uint32{3, 0, 0, 0, 1, 0, 0, 1},
		Boundaries: []sfc.Key{0, tree[4], sfc.NodeRange(0)},
	}
}

func TestRoundTrip(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "state.cst")
	state := testState()

	if err := Write(fname, state); err != nil {
		t.Fatalf("Write failed: %s", err.Error())
	}

	out, err := Read(fname)
	if err != nil {
		t.Fatalf("Read failed: %s", err.Error())
	}

	if out.Box != state.Box {
		t.Errorf("Box read back as %v, not %v.", out.Box, state.Box)
	}
	if !eq.Keys(out.Keys, state.Keys) {
		t.Errorf("Keys read back as %x.", out.Keys)
	}
	if !eq.Keys(out.Tree, state.Tree) {
		t.Errorf("Tree read back as %x.", out.Tree)
	}
	if !eq.Uint32s(out.Counts, state.Counts) {
		t.Errorf("Counts read back as %d.", out.Counts)
	}
	if !eq.Keys(out.Boundaries, state.Boundaries) {
		t.Errorf("Boundaries read back as %x.", out.Boundaries)
	}
}

func TestBadMagicNumber(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "not_a_checkpoint")
	if err := os.WriteFile(fname, []byte("meow meow meow"), 0644); err != nil {
		t.Fatalf("Could not create test file: %s", err.Error())
	}

	if _, err := Read(fname); err == nil {
		t.Errorf("Reading a non-checkpoint file did not fail.")
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Errorf("Reading a missing file did not fail.")
	}
}
