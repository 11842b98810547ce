/*package checkpoint saves and restores the domain state (sorted particle
keys, the cornerstone tree, per-leaf counts, and the decomposition
boundaries) as a single zstd-compressed file. It exists so long runs can
resume decomposition without re-sorting, and so the stats and check driver
modes have something to inspect. The exchange protocol between ranks is a
separate concern and has no on-disk representation here.*/
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/DataDog/zstd"

	"github.com/phil-mansfield/cstone/lib/sfc"
)

const (
	// MagicNumber is an arbitrary number at the start of all cstone
	// checkpoint files which should help identify when the code is run on
	// something else by accident.
	MagicNumber = 0xc0de0c73
	// ReverseMagicNumber is the magic number if read on a machine with
	// flipped endianness.
	ReverseMagicNumber = 0x730cdec0
	Version            = 1
)

// State is everything needed to restart decomposition: the sorted particle
// keys, the cornerstone tree built over them, the per-leaf counts, and the
// per-rank boundary keys.
type State struct {
	Box        sfc.Box
	Keys       []sfc.Key
	Tree       []sfc.Key
	Counts     []uint32
	Boundaries []sfc.Key
}

// fixedWidthHeader is the fixed-size portion of the file header.
type fixedWidthHeader struct {
	NKeys, NLeaves, NRanks int64
	Origin, Width          [3]float64
	Periodic               [3]uint8
	Pad                    [5]uint8
}

// Write saves state to fname, compressing each array with zstd.
func Write(fname string, state *State) error {
	fp, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer fp.Close()

	order := binary.ByteOrder(binary.LittleEndian)

	err = binary.Write(fp, order, uint32(MagicNumber))
	if err != nil {
		return err
	}
	err = binary.Write(fp, order, uint32(Version))
	if err != nil {
		return err
	}

	hd := &fixedWidthHeader{
		NKeys:   int64(len(state.Keys)),
		NLeaves: int64(len(state.Tree) - 1),
		NRanks:  int64(len(state.Boundaries) - 1),
		Origin:  state.Box.Origin,
		Width:   state.Box.Width,
	}
	for d := 0; d < 3; d++ {
		if state.Box.Periodic[d] {
			hd.Periodic[d] = 1
		}
	}
	if err := binary.Write(fp, order, hd); err != nil {
		return err
	}

	blocks := []interface{}{
		state.Keys, state.Tree, state.Counts, state.Boundaries,
	}
	for _, block := range blocks {
		if err := writeBlock(fp, order, block); err != nil {
			return err
		}
	}

	return nil
}

// writeBlock serializes one array, compresses it, and writes a
// (rawSize, compressedSize, bytes) record.
func writeBlock(fp *os.File, order binary.ByteOrder, x interface{}) error {
	raw := &bytes.Buffer{}
	if err := binary.Write(raw, order, x); err != nil {
		return err
	}

	compressed, err := zstd.Compress(nil, raw.Bytes())
	if err != nil {
		return err
	}

	if err := binary.Write(fp, order, int64(raw.Len())); err != nil {
		return err
	}
	if err := binary.Write(fp, order, int64(len(compressed))); err != nil {
		return err
	}
	_, err = fp.Write(compressed)
	return err
}

// Read restores a State written by Write.
func Read(fname string) (*State, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	order, err := checkFile(fname, fp)
	if err != nil {
		return nil, err
	}

	hd := &fixedWidthHeader{}
	if err := binary.Read(fp, order, hd); err != nil {
		return nil, err
	}

	state := &State{
		Box:        sfc.Box{Origin: hd.Origin, Width: hd.Width},
		Keys:       make([]sfc.Key, hd.NKeys),
		Tree:       make([]sfc.Key, hd.NLeaves+1),
		Counts:     make([]uint32, hd.NLeaves),
		Boundaries: make([]sfc.Key, hd.NRanks+1),
	}
	for d := 0; d < 3; d++ {
		state.Box.Periodic[d] = hd.Periodic[d] != 0
	}

	blocks := []interface{}{
		state.Keys, state.Tree, state.Counts, state.Boundaries,
	}
	for _, block := range blocks {
		if err := readBlock(fp, order, block); err != nil {
			return nil, err
		}
	}

	return state, nil
}

func readBlock(fp *os.File, order binary.ByteOrder, x interface{}) error {
	var rawSize, compressedSize int64
	if err := binary.Read(fp, order, &rawSize); err != nil {
		return err
	}
	if err := binary.Read(fp, order, &compressedSize); err != nil {
		return err
	}

	compressed := make([]byte, compressedSize)
	if _, err := io.ReadFull(fp, compressed); err != nil {
		return err
	}

	raw, err := zstd.Decompress(make([]byte, 0, rawSize), compressed)
	if err != nil {
		return err
	}
	if int64(len(raw)) != rawSize {
		return fmt.Errorf("A checkpoint block decompressed to %d bytes, "+
			"but its header says it should be %d bytes.", len(raw), rawSize)
	}

	return binary.Read(bytes.NewReader(raw), order, x)
}

// checkFile reads in the file's magic number and version number and makes
// sure that cstone can actually read it. If it can, the byte order is
// returned. Otherwise an error is returned.
func checkFile(fname string, fp *os.File) (binary.ByteOrder, error) {
	var magicNumber, version uint32

	order := binary.ByteOrder(binary.LittleEndian)
	if err := binary.Read(fp, order, &magicNumber); err != nil {
		return nil, err
	}

	switch magicNumber {
	case MagicNumber:
	case ReverseMagicNumber:
		order = binary.BigEndian
	default:
		return order, fmt.Errorf("%s is not a cstone checkpoint. All "+
			"cstone checkpoints begin with either the 32-bit integer %x or "+
			"%x. This file begins with %x.", fname, uint32(MagicNumber),
			uint32(ReverseMagicNumber), magicNumber)
	}

	if err := binary.Read(fp, order, &version); err != nil {
		return nil, err
	}
	if version > Version {
		return order, fmt.Errorf("The file %s was created with cstone "+
			"version %d, but you are trying to read it with cstone version "+
			"%d.", fname, version, Version)
	}

	return order, nil
}
