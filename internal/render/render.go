// Package render draws boards for the terminal, one 256-colour background
// per tile rank.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"

	"github.com/yourusername/td2048/internal/board"
)

// CellWidth is the printed width of one cell.
const CellWidth = 6

// palette maps a rank to a 256-colour background.
var palette = [...]uint8{250, 231, 229, 223, 216, 209, 203, 197, 226, 220, 214, 208, 202, 196, 160, 124}

// Renderer draws boards, with or without ANSI colours.
type Renderer struct {
	au aurora.Aurora
}

// New returns a renderer; color false gives plain text.
func New(color bool) *Renderer {
	return &Renderer{au: aurora.NewAurora(color)}
}

// Colour returns the background colour index for a rank.
func Colour(rank int) uint8 {
	if rank < 0 {
		rank = 0
	}
	if rank >= len(palette) {
		rank = len(palette) - 1
	}
	return palette[rank]
}

// cell formats one tile centred in CellWidth columns.
func cell(rank uint8) string {
	label := "."
	if rank > 0 {
		label = fmt.Sprint(1 << rank)
	}
	pad := CellWidth - len(label)
	if pad < 0 {
		return label
	}
	left := pad / 2
	return strings.Repeat(" ", left) + label + strings.Repeat(" ", pad-left)
}

// Board returns the board as four lines of coloured cells.
func (r *Renderer) Board(b board.Board) string {
	var sb strings.Builder
	for i := range b {
		for j := range b[i] {
			rank := b[i][j]
			sb.WriteString(r.au.BgIndex(Colour(int(rank)), cell(rank)).Bold().String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Frame writes a status line followed by the board.
func (r *Renderer) Frame(w io.Writer, b board.Board, move, score int, action string) error {
	status := fmt.Sprintf("move %d  score %d", move, score)
	if action != "" {
		status += "  " + action
	}
	if _, err := fmt.Fprintln(w, r.au.Bold(status)); err != nil {
		return err
	}
	_, err := io.WriteString(w, r.Board(b))
	return err
}
