package engine

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/yourusername/td2048/internal/board"
	"github.com/yourusername/td2048/internal/ntuple"
)

var gameOverBoard = board.Board{
	{1, 2, 1, 2},
	{2, 1, 2, 1},
	{1, 2, 1, 2},
	{2, 1, 2, 1},
}

func randomBoard(rng *rand.Rand, maxRank int) board.Board {
	var b board.Board
	for i := range b {
		for j := range b[i] {
			if rng.Float64() < 0.3 {
				continue
			}
			b[i][j] = uint8(rng.Intn(maxRank))
		}
	}
	return b
}

func TestBestActionTieBreak(t *testing.T) {
	a := NewDefaultAgent()

	tests := []struct {
		name string
		b    board.Board
		want board.Action
	}{
		// Fresh network: every afterstate is worth 0, so score == reward.
		{"no merge, first legal wins", board.Board{{1, 0, 0, 0}}, board.Right},
		{"merge left and right tie", board.Board{{1, 1, 0, 0}}, board.Left},
		{"only vertical merge", board.Board{{1, 2, 3, 4}, {1, 0, 0, 0}}, board.Up},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := a.BestAction(tc.b)
			if err != nil || !ok {
				t.Fatalf("BestAction = %v, %v, %v", got, ok, err)
			}
			if got != tc.want {
				t.Errorf("BestAction = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBestActionGameOver(t *testing.T) {
	a := NewDefaultAgent()
	if act, ok, err := a.BestAction(gameOverBoard); ok || err != nil {
		t.Errorf("BestAction on game over = %v, %v, %v; want no action", act, ok, err)
	}
}

func TestBestActionPrefersValue(t *testing.T) {
	a := NewDefaultAgent()
	b := board.Board{{1, 0, 0, 0}}

	// Make the Down afterstate valuable; Right has the same reward (0).
	down, _, err := b.Move(board.Down)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Network().Accumulate(down, 10); err != nil {
		t.Fatal(err)
	}
	got, ok, err := a.BestAction(b)
	if err != nil || !ok {
		t.Fatalf("BestAction = %v, %v, %v", got, ok, err)
	}
	if got != board.Down {
		t.Errorf("BestAction = %v, want down", got)
	}
}

func TestBestActionRankOverflow(t *testing.T) {
	a := NewDefaultAgent()
	b := board.Board{{14, 14, 0, 0}}
	if _, _, err := a.BestAction(b); !errors.Is(err, board.ErrRankOverflow) {
		t.Errorf("err = %v, want ErrRankOverflow", err)
	}
}

func TestBestActionAlwaysLegal(t *testing.T) {
	a := NewDefaultAgent()
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		b := randomBoard(rng, 12)
		act, ok, err := a.BestAction(b)
		if err != nil {
			t.Fatal(err)
		}
		if ok == b.GameOver() {
			t.Fatalf("ok = %v but GameOver = %v on\n%v", ok, b.GameOver(), b)
		}
		if ok {
			if _, _, err := b.Move(act); err != nil {
				t.Fatalf("BestAction %v is illegal on\n%v", act, b)
			}
		}
	}
}

func TestLearnBootstrapsFromGreedyNext(t *testing.T) {
	a := NewDefaultAgent()
	after := board.Board{{0, 1, 0, 0}}
	next := board.Board{{1, 1, 0, 0}} // greedy: left, reward 4, value 0

	err := a.Learn(Transition{
		State:      board.Board{{1, 0, 0, 0}},
		Action:     board.Right,
		HasAction:  true,
		AfterState: after,
		NextState:  next,
	}, 0.1)
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	v, _ := a.Value(after)
	if math.Abs(v-0.4) > 1e-12 {
		t.Errorf("V(after) = %f, want 0.4", v)
	}
}

func TestLearnTerminalNextState(t *testing.T) {
	a := NewDefaultAgent()
	after := board.Board{{3, 0, 0, 0}, {0, 2}}
	if _, err := a.Network().Accumulate(after, 1); err != nil {
		t.Fatal(err)
	}

	if err := a.Learn(Transition{AfterState: after, NextState: gameOverBoard, HasAction: true}, 0.5); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	v, _ := a.Value(after)
	if math.Abs(v-0.5) > 1e-12 {
		t.Errorf("V(after) = %f, want 0.5", v)
	}
}

func TestLearnFinalTransition(t *testing.T) {
	a := NewDefaultAgent()
	err := a.Learn(Transition{State: gameOverBoard, Final: true}, 0.1)
	if !errors.Is(err, ErrIncompleteTransition) {
		t.Errorf("err = %v, want ErrIncompleteTransition", err)
	}
}

func TestNewAgentErrors(t *testing.T) {
	if _, err := NewAgent(nil, ntuple.DefaultMaxRank); err == nil {
		t.Error("expected error for no tuples")
	}
	if _, err := NewAgent(ntuple.DefaultTuples(), 1); err == nil {
		t.Error("expected error for max rank 1")
	}
}

func TestAnalyzeAgreesWithBestAction(t *testing.T) {
	a := NewDefaultAgent()
	rng := rand.New(rand.NewSource(11))
	// Give the network some non-zero opinions first.
	for i := 0; i < 20; i++ {
		if _, err := a.TrainEpisode(nil, rng, 0.1); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 300; i++ {
		b := randomBoard(rng, 10)
		res, err := a.Analyze(b)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Actions) != board.NumActions {
			t.Fatalf("got %d actions", len(res.Actions))
		}
		if res.NumLegal != len(b.LegalActions()) {
			t.Errorf("NumLegal = %d, want %d", res.NumLegal, len(b.LegalActions()))
		}
		for k, ev := range res.Actions {
			if k >= res.NumLegal && ev.Legal {
				t.Fatalf("legal action %v ranked after illegal ones", ev.Action)
			}
			if k > 0 && ev.Legal && ev.Score > res.Actions[k-1].Score {
				t.Fatalf("actions not sorted by score: %+v", res.Actions)
			}
		}

		best, ok, _ := a.BestAction(b)
		if ok != res.HasBest || (ok && best != res.Best) {
			t.Fatalf("Analyze best = %v/%v, BestAction = %v/%v on\n%v", res.Best, res.HasBest, best, ok, b)
		}
	}
}
