package main

import (
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/phil-mansfield/cstone/lib/checkpoint"
	"github.com/phil-mansfield/cstone/lib/cstree"
	"github.com/phil-mansfield/cstone/lib/domain"
	"github.com/phil-mansfield/cstone/lib/env"
	"github.com/phil-mansfield/cstone/lib/halo"
	"github.com/phil-mansfield/cstone/lib/sfc"
)

func main() {
	if len(os.Args) < 2 {
		env.External("cstone must be run as 'cstone <mode> [args]', where " +
			"<mode> is 'demo', 'stats', or 'check'.")
	}

	switch mode := os.Args[1]; mode {
	case "demo":
		Demo(os.Args[2:])
	case "stats":
		if len(os.Args) != 3 {
			env.External("The 'stats' mode must be run as " +
				"'cstone stats <checkpoint>'.")
		}
		Stats(os.Args[2])
	case "check":
		if len(os.Args) != 3 {
			env.External("The 'check' mode must be run as " +
				"'cstone check <checkpoint>'.")
		}
		Check(os.Args[2])
	default:
		env.External("You attempted to run cstone in the mode '%s', but "+
			"the only valid modes are 'demo', 'stats', and 'check'.", mode)
	}
}

// Demo builds a tree, a decomposition, and halo flags for a synthetic
// 10x10x10 particle grid, prints a summary, and optionally writes the
// resulting state to a checkpoint file given as the first argument.
func Demo(args []string) {
	box := sfc.NewCube([3]float64{0, 0, 0}, 5.0, true)

	n := 10
	x := make([]float64, 0, n*n*n)
	y := make([]float64, 0, n*n*n)
	z := make([]float64, 0, n*n*n)
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				x = append(x, 0.5*float64(i))
				y = append(y, 0.5*float64(j))
				z = append(z, 0.5*float64(k))
			}
		}
	}

	keys := make([]sfc.Key, len(x))
	for i := range keys {
		keys[i] = sfc.Encode(x[i], y[i], z[i], box)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	tree, counts, converged := cstree.Update(
		cstree.MakeRootTree(), keys, 64, 0)
	if !converged {
		fmt.Println("Tree build hit the pass cap; some leaf at the " +
			"maximum depth is over-full.")
	}

	p := 4
	boundaries, err := domain.Decompose(tree, counts, p)
	if err != nil {
		env.External("%s", err.Error())
	}

	ot := cstree.BuildOctree(tree)
	radii := make([]float64, len(tree)-1)
	for i := range radii {
		radii[i] = 0.75
	}

	fmt.Printf("particles %8d\n", len(keys))
	fmt.Printf("leaves    %8d\n", len(tree)-1)
	fmt.Printf("nodes     %8d\n", ot.NumNodes())
	printOccupancy(counts)

	fmt.Printf("imbalance %8.3f over %d ranks\n",
		domain.Imbalance(tree, counts, boundaries), p)
	for rank := 0; rank < p; rank++ {
		c := domain.Comm{Rank: rank, Size: p}
		peers := domain.FindPeers(c, boundaries, rankRadii(p, 0.75), box)

		first, last := domain.LeafRange(tree, boundaries, rank)
		flags := make([]uint8, len(tree)-1)
		halo.FindHalos(ot, tree, radii, first, last, box, flags)

		nHalo := 0
		for _, f := range flags {
			nHalo += int(f)
		}
		fmt.Printf("rank %d: %4d particles, %d peers, %d halo leaves\n",
			rank, domain.RangeCount(tree, counts, boundaries, rank),
			len(peers), nHalo)
	}

	if len(args) > 0 {
		state := &checkpoint.State{
			Box: *box, Keys: keys, Tree: tree,
			Counts: counts, Boundaries: boundaries,
		}
		if err := checkpoint.Write(args[0], state); err != nil {
			env.External("%s", err.Error())
		}
		fmt.Printf("wrote checkpoint to %s\n", args[0])
	}
}

// Stats prints occupancy and load-balance statistics for a checkpoint.
func Stats(fname string) {
	state, err := checkpoint.Read(fname)
	if err != nil {
		env.External("%s", err.Error())
	}

	fmt.Printf("particles %8d\n", len(state.Keys))
	fmt.Printf("leaves    %8d\n", len(state.Tree)-1)
	fmt.Printf("ranks     %8d\n", len(state.Boundaries)-1)
	printOccupancy(state.Counts)
	fmt.Printf("imbalance %8.3f\n",
		domain.Imbalance(state.Tree, state.Counts, state.Boundaries))
}

// Check verifies the structural invariants of a checkpoint and reports the
// first violation it finds.
func Check(fname string) {
	state, err := checkpoint.Read(fname)
	if err != nil {
		env.External("%s", err.Error())
	}

	tree := state.Tree
	if tree[0] != 0 || tree[len(tree)-1] != sfc.NodeRange(0) {
		env.External("The checkpoint's tree does not cover the full key " +
			"space.")
	}
	for i := 0; i+1 < len(tree); i++ {
		if tree[i] >= tree[i+1] {
			env.External("The checkpoint's tree is not sorted at leaf %d.",
				i)
		}
	}
	for i := 0; i+1 < len(state.Keys); i++ {
		if state.Keys[i] > state.Keys[i+1] {
			env.External("The checkpoint's keys are not sorted at index "+
				"%d.", i)
		}
	}
	for r, b := range state.Boundaries {
		i := sort.Search(len(tree), func(j int) bool { return tree[j] >= b })
		if i == len(tree) || tree[i] != b {
			env.External("Boundary %d is not aligned to a leaf.", r)
		}
	}

	fmt.Println("No errors detected.")
}

func printOccupancy(counts []uint32) {
	occ := make([]float64, len(counts))
	for i := range counts {
		occ[i] = float64(counts[i])
	}
	mean, std := stat.MeanStdDev(occ, nil)
	fmt.Printf("occupancy %8.2f +/- %.2f particles per leaf\n", mean, std)
}

func rankRadii(p int, r float64) []float64 {
	radii := make([]float64, p)
	for i := range radii {
		radii[i] = r
	}
	return radii
}
