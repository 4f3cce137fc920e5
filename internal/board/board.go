// Package board implements the 4x4 game state for 2048.
//
// Cells hold ranks rather than tile values: rank 0 is an empty cell and
// rank k represents the tile 2^k. Board is a value type, so assigning or
// passing a Board always yields an independent copy; hypothetical moves
// never touch the caller's state.
package board

import (
	"errors"
	"fmt"
	"strings"
)

// Size is the side length of the board.
const Size = 4

// Spawn probabilities: a new tile is a 2 (rank 1) unless Float64 < FourProb.
const FourProb = 0.1

var (
	// ErrIllegalMove is returned when an action leaves the board unchanged.
	ErrIllegalMove = errors.New("illegal move")
	// ErrNoSpace is returned when no empty cell is available for a spawn.
	ErrNoSpace = errors.New("no space to spawn tile")
	// ErrRankOverflow is returned when a rank reaches the configured ceiling.
	ErrRankOverflow = errors.New("tile rank overflow")
)

// Board is the grid of tile ranks, indexed [row][col].
type Board [Size][Size]uint8

// Source is the random source used for tile spawns. *math/rand.Rand
// satisfies it.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// Cell identifies a board position.
type Cell struct {
	Row, Col int
}

// FromRanks builds a board from a 4x4 slice of ranks.
func FromRanks(ranks [][]int) (Board, error) {
	var b Board
	if len(ranks) != Size {
		return b, fmt.Errorf("board has %d rows, expected %d", len(ranks), Size)
	}
	for i, row := range ranks {
		if len(row) != Size {
			return b, fmt.Errorf("row %d has %d cells, expected %d", i, len(row), Size)
		}
		for j, r := range row {
			if r < 0 || r > 255 {
				return b, fmt.Errorf("cell (%d,%d): rank %d out of range", i, j, r)
			}
			b[i][j] = uint8(r)
		}
	}
	return b, nil
}

// Ranks returns the board as a nested int slice (the serving wire format).
func (b Board) Ranks() [][]int {
	out := make([][]int, Size)
	for i := range b {
		out[i] = make([]int, Size)
		for j := range b[i] {
			out[i][j] = int(b[i][j])
		}
	}
	return out
}

// Reset clears the board and spawns the two starting tiles.
func (b *Board) Reset(rng Source) {
	*b = Board{}
	// Cannot fail on an empty board.
	_ = b.SpawnTile(rng)
	_ = b.SpawnTile(rng)
}

// New returns a freshly reset board.
func New(rng Source) Board {
	var b Board
	b.Reset(rng)
	return b
}

// EmptyCells returns the empty cells in row-major order.
func (b Board) EmptyCells() []Cell {
	cells := make([]Cell, 0, Size*Size)
	for i := 0; i < Size; i++ {
		for j := 0; j < Size; j++ {
			if b[i][j] == 0 {
				cells = append(cells, Cell{Row: i, Col: j})
			}
		}
	}
	return cells
}

// SpawnTile places a 2 (90%) or a 4 (10%) on a uniformly chosen empty cell.
func (b *Board) SpawnTile(rng Source) error {
	empty := b.EmptyCells()
	if len(empty) == 0 {
		return ErrNoSpace
	}
	c := empty[rng.Intn(len(empty))]
	rank := uint8(1)
	if rng.Float64() < FourProb {
		rank = 2
	}
	b[c.Row][c.Col] = rank
	return nil
}

// MaxRank returns the largest rank on the board.
func (b Board) MaxRank() int {
	m := 0
	for i := range b {
		for j := range b[i] {
			if int(b[i][j]) > m {
				m = int(b[i][j])
			}
		}
	}
	return m
}

// MaxTile returns the value of the largest tile, 2^MaxRank.
func (b Board) MaxTile() int {
	return 1 << b.MaxRank()
}

// Validate reports ErrRankOverflow if any rank is >= maxRank.
func (b Board) Validate(maxRank int) error {
	for i := range b {
		for j := range b[i] {
			if int(b[i][j]) >= maxRank {
				return fmt.Errorf("cell (%d,%d) rank %d >= %d: %w", i, j, b[i][j], maxRank, ErrRankOverflow)
			}
		}
	}
	return nil
}

// Rotate returns the board rotated k quarter turns counter-clockwise.
func (b Board) Rotate(k int) Board {
	k = ((k % 4) + 4) % 4
	for ; k > 0; k-- {
		var r Board
		for i := 0; i < Size; i++ {
			for j := 0; j < Size; j++ {
				r[i][j] = b[j][Size-1-i]
			}
		}
		b = r
	}
	return b
}

// String renders the board as rows of ranks separated by newlines.
func (b Board) String() string {
	var sb strings.Builder
	for i := range b {
		for j := range b[i] {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%2d", b[i][j])
		}
		if i < Size-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
