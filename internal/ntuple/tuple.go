// Package ntuple implements the n-tuple network value function for 2048.
//
// An n-tuple network is a set of lookup tables, one per tuple of board
// cells. Each table maps the ranks found on its cells to a weight; the value
// of a board is the mean of the weights selected across all tables.
package ntuple

import (
	"fmt"

	"github.com/yourusername/td2048/internal/board"
)

// DefaultMaxRank is the reference tile ceiling: ranks 0..14, tiles up to 2^14.
const DefaultMaxRank = 15

// Coord is a board coordinate.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Tuple is an ordered list of board coordinates.
type Tuple []Coord

// Validate checks that the tuple is non-empty, in range and has no repeated
// cells.
func (t Tuple) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("empty tuple")
	}
	seen := make(map[Coord]bool, len(t))
	for _, c := range t {
		if c.Row < 0 || c.Row >= board.Size || c.Col < 0 || c.Col >= board.Size {
			return fmt.Errorf("coordinate (%d,%d) outside the board", c.Row, c.Col)
		}
		if seen[c] {
			return fmt.Errorf("coordinate (%d,%d) repeated", c.Row, c.Col)
		}
		seen[c] = true
	}
	return nil
}

func (t Tuple) clone() Tuple {
	out := make(Tuple, len(t))
	copy(out, t)
	return out
}

func row(r int) Tuple {
	return Tuple{{r, 0}, {r, 1}, {r, 2}, {r, 3}}
}

func col(c int) Tuple {
	return Tuple{{0, c}, {1, c}, {2, c}, {3, c}}
}

func box(r, c int) Tuple {
	return Tuple{{r, c}, {r, c + 1}, {r + 1, c}, {r + 1, c + 1}}
}

// DefaultTuples returns the reference configuration: the 4 rows, the 4
// columns and 9 four-cell box shapes.
func DefaultTuples() []Tuple {
	return []Tuple{
		row(0), row(1), row(2), row(3),
		col(0), col(1), col(2), col(3),
		box(0, 0), box(0, 2), box(2, 0), box(2, 2),
		box(1, 0), box(1, 2), box(0, 1), box(1, 1),
		// Skewed box covering the bottom-right area.
		{{2, 2}, {2, 3}, {3, 1}, {3, 2}},
	}
}
