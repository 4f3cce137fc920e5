// Package boardid implements compact board identifiers.
//
// A board key packs the 16 cell ranks into a uint64, four bits per cell in
// row-major order with cell (0,0) in the most significant nibble. The board
// ID is the key written as 16 lowercase hex digits, so "0000000000000011"
// is a board with two 2-tiles in the bottom-right corner.
package boardid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/td2048/internal/board"
)

// IDLength is the length of a board ID string.
const IDLength = board.Size * board.Size

// MaxRank is the largest rank a key can hold.
const MaxRank = 15

// ErrInvalidID is returned for malformed board IDs.
var ErrInvalidID = errors.New("invalid board ID")

// Key packs a board into a uint64. Ranks above MaxRank are rejected.
func Key(b board.Board) (uint64, error) {
	var key uint64
	for i := 0; i < board.Size; i++ {
		for j := 0; j < board.Size; j++ {
			r := b[i][j]
			if r > MaxRank {
				return 0, fmt.Errorf("cell (%d,%d) rank %d does not fit a key: %w", i, j, r, board.ErrRankOverflow)
			}
			key = key<<4 | uint64(r)
		}
	}
	return key, nil
}

// BoardFromKey unpacks a key produced by Key.
func BoardFromKey(key uint64) board.Board {
	var b board.Board
	for i := board.Size - 1; i >= 0; i-- {
		for j := board.Size - 1; j >= 0; j-- {
			b[i][j] = uint8(key & 0xF)
			key >>= 4
		}
	}
	return b
}

// ID returns the 16-character hex ID for a board.
func ID(b board.Board) (string, error) {
	key, err := Key(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", key), nil
}

// BoardFromID parses a board ID. Upper-case digits are accepted.
func BoardFromID(id string) (board.Board, error) {
	id = strings.TrimSpace(id)
	if len(id) != IDLength {
		return board.Board{}, fmt.Errorf("%w: length %d, expected %d", ErrInvalidID, len(id), IDLength)
	}
	key, err := strconv.ParseUint(id, 16, 64)
	if err != nil {
		return board.Board{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return BoardFromKey(key), nil
}
