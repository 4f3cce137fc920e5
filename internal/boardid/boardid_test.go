package boardid

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/yourusername/td2048/internal/board"
)

func TestIDKnownBoard(t *testing.T) {
	var b board.Board
	b[0][0] = 1
	b[3][2] = 11
	b[3][3] = 15

	id, err := ID(b)
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	if want := "10000000000000bf"; id != want {
		t.Errorf("ID = %s, want %s", id, want)
	}
}

func TestIDRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for n := 0; n < 1000; n++ {
		var b board.Board
		for i := range b {
			for j := range b[i] {
				b[i][j] = uint8(rng.Intn(MaxRank + 1))
			}
		}
		id, err := ID(b)
		if err != nil {
			t.Fatalf("ID: %v", err)
		}
		if len(id) != IDLength {
			t.Fatalf("ID length = %d", len(id))
		}
		got, err := BoardFromID(id)
		if err != nil {
			t.Fatalf("BoardFromID(%s): %v", id, err)
		}
		if got != b {
			t.Fatalf("round trip mismatch for %s:\n%v\nvs\n%v", id, got, b)
		}
	}
}

func TestBoardFromIDErrors(t *testing.T) {
	tests := []string{
		"",
		"123",
		"zzzzzzzzzzzzzzzz",
		"00000000000000000",
	}
	for _, id := range tests {
		if _, err := BoardFromID(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("BoardFromID(%q) err = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestBoardFromIDUpperCase(t *testing.T) {
	b, err := BoardFromID("00000000000000AB")
	if err != nil {
		t.Fatal(err)
	}
	if b[3][2] != 10 || b[3][3] != 11 {
		t.Errorf("unexpected board:\n%v", b)
	}
}

func TestKeyOverflow(t *testing.T) {
	var b board.Board
	b[1][1] = 16
	if _, err := Key(b); !errors.Is(err, board.ErrRankOverflow) {
		t.Errorf("Key err = %v, want ErrRankOverflow", err)
	}
}
