package board

import (
	"fmt"
	"strings"
)

// Action is one of the four slide directions. The numeric values are the
// identifiers used on the wire by the serving layer.
type Action int

const (
	Up Action = iota
	Right
	Down
	Left
)

// NumActions is the number of distinct actions.
const NumActions = 4

// SearchOrder is the fixed order in which actions are enumerated during
// action selection. Ties go to the earliest entry.
var SearchOrder = [NumActions]Action{Left, Right, Up, Down}

var actionNames = [NumActions]string{"up", "right", "down", "left"}

// String returns the lowercase action name.
func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// Valid reports whether a is one of the four directions.
func (a Action) Valid() bool {
	return a >= Up && a <= Left
}

// ParseAction converts a name ("up", "L", ...) into an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "right", "r":
		return Right, nil
	case "down", "d":
		return Down, nil
	case "left", "l":
		return Left, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// rotations gives, per action, the counter-clockwise quarter turns applied
// before and after the slide-left primitive.
var rotations = [NumActions][2]int{
	Up:    {1, 3},
	Right: {2, 2},
	Down:  {3, 1},
	Left:  {0, 0},
}

// SlideRow slides a single row to the left, merging equal neighbours once,
// and returns the new row with the score earned (sum of merged tile values).
func SlideRow(row [Size]uint8) ([Size]uint8, int) {
	var tiles [Size]uint8
	n := 0
	for _, r := range row {
		if r != 0 {
			tiles[n] = r
			n++
		}
	}

	var out [Size]uint8
	score := 0
	k := 0
	for i := 0; i < n; {
		if i+1 < n && tiles[i] == tiles[i+1] {
			merged := tiles[i] + 1
			out[k] = merged
			score += 1 << merged
			i += 2
		} else {
			out[k] = tiles[i]
			i++
		}
		k++
	}
	return out, score
}

// slideLeft applies SlideRow to every row.
func (b Board) slideLeft() (Board, int) {
	total := 0
	for i := range b {
		row, score := SlideRow(b[i])
		b[i] = row
		total += score
	}
	return b, total
}

// Move returns the board after applying a, together with the merge score.
// The receiver is not modified. If the action changes nothing,
// ErrIllegalMove is returned.
func (b Board) Move(a Action) (Board, int, error) {
	if !a.Valid() {
		return b, 0, fmt.Errorf("move %v: %w", a, ErrIllegalMove)
	}
	rot := rotations[a]
	next, score := b.Rotate(rot[0]).slideLeft()
	next = next.Rotate(rot[1])
	if next == b {
		return b, 0, ErrIllegalMove
	}
	return next, score, nil
}

// Apply performs a in place and returns the merge score. On ErrIllegalMove
// the board is left unchanged.
func (b *Board) Apply(a Action) (int, error) {
	next, score, err := b.Move(a)
	if err != nil {
		return 0, err
	}
	*b = next
	return score, nil
}

// LegalActions returns the actions that change the board, in SearchOrder.
func (b Board) LegalActions() []Action {
	var legal []Action
	for _, a := range SearchOrder {
		if _, _, err := b.Move(a); err == nil {
			legal = append(legal, a)
		}
	}
	return legal
}

// GameOver reports whether no action can change the board.
func (b Board) GameOver() bool {
	for _, a := range SearchOrder {
		if _, _, err := b.Move(a); err == nil {
			return false
		}
	}
	return true
}
