package ntuple

import (
	"fmt"

	"github.com/yourusername/td2048/internal/board"
)

// MaxEntries bounds the size of a single lookup table.
const MaxEntries = 1 << 27

// Network is a set of lookup tables, one per tuple. Tables are mutated only
// through Accumulate; concurrent readers are safe only while no writer runs.
type Network struct {
	maxRank int
	tuples  []Tuple
	luts    [][]float64
}

// NewNetwork builds a network with zeroed tables of size maxRank^len(tuple).
func NewNetwork(tuples []Tuple, maxRank int) (*Network, error) {
	if len(tuples) == 0 {
		return nil, fmt.Errorf("network needs at least one tuple")
	}
	if maxRank < 2 || maxRank > 255 {
		return nil, fmt.Errorf("invalid max rank %d", maxRank)
	}

	n := &Network{
		maxRank: maxRank,
		tuples:  make([]Tuple, len(tuples)),
		luts:    make([][]float64, len(tuples)),
	}
	for i, t := range tuples {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("tuple %d: %w", i, err)
		}
		size, err := tableSize(len(t), maxRank)
		if err != nil {
			return nil, fmt.Errorf("tuple %d: %w", i, err)
		}
		n.tuples[i] = t.clone()
		n.luts[i] = make([]float64, size)
	}
	return n, nil
}

// tableSize returns maxRank^length, failing past MaxEntries.
func tableSize(length, maxRank int) (int, error) {
	size := 1
	for i := 0; i < length; i++ {
		size *= maxRank
		if size > MaxEntries {
			return 0, fmt.Errorf("table for %d cells at max rank %d exceeds %d entries", length, maxRank, MaxEntries)
		}
	}
	return size, nil
}

// MaxRank returns the rank ceiling; valid ranks are [0, MaxRank).
func (n *Network) MaxRank() int { return n.maxRank }

// NumTuples returns the number of tuples (and tables).
func (n *Network) NumTuples() int { return len(n.tuples) }

// Tuples returns a copy of the tuple definitions.
func (n *Network) Tuples() []Tuple {
	out := make([]Tuple, len(n.tuples))
	for i, t := range n.tuples {
		out[i] = t.clone()
	}
	return out
}

// Entries returns the total number of weights across all tables.
func (n *Network) Entries() int {
	total := 0
	for _, lut := range n.luts {
		total += len(lut)
	}
	return total
}

// Index encodes the ranks under tuple i as a mixed-radix number in base
// MaxRank, the first listed coordinate being the most significant digit.
func (n *Network) Index(i int, b board.Board) (int, error) {
	idx := 0
	for _, c := range n.tuples[i] {
		r := int(b[c.Row][c.Col])
		if r >= n.maxRank {
			return 0, fmt.Errorf("tuple %d cell (%d,%d) rank %d >= %d: %w",
				i, c.Row, c.Col, r, n.maxRank, board.ErrRankOverflow)
		}
		idx = idx*n.maxRank + r
	}
	return idx, nil
}

// Decode is the inverse of Index: it returns the ranks, in tuple order,
// that produce idx for tuple i.
func (n *Network) Decode(i, idx int) []int {
	ranks := make([]int, len(n.tuples[i]))
	for k := len(ranks) - 1; k >= 0; k-- {
		ranks[k] = idx % n.maxRank
		idx /= n.maxRank
	}
	return ranks
}

// Value returns the mean of the table entries selected by b.
func (n *Network) Value(b board.Board) (float64, error) {
	sum := 0.0
	for i, lut := range n.luts {
		idx, err := n.Index(i, b)
		if err != nil {
			return 0, err
		}
		sum += lut[idx]
	}
	return sum / float64(len(n.luts)), nil
}

// Accumulate adds delta, unscaled, to every table entry selected by b and
// returns the updated mean. Shifting every entry by delta moves the mean
// by exactly delta.
func (n *Network) Accumulate(b board.Board, delta float64) (float64, error) {
	var idx [32]int
	indices := idx[:0]
	for i := range n.luts {
		k, err := n.Index(i, b)
		if err != nil {
			return 0, err
		}
		indices = append(indices, k)
	}

	sum := 0.0
	for i, k := range indices {
		n.luts[i][k] += delta
		sum += n.luts[i][k]
	}
	return sum / float64(len(n.luts)), nil
}

// Weight returns a single table entry.
func (n *Network) Weight(i, idx int) float64 {
	return n.luts[i][idx]
}
