package engine

import (
	"errors"
	"fmt"

	"github.com/yourusername/td2048/internal/board"
)

// Transition records one move of an episode.
type Transition struct {
	State      board.Board  // before the move
	Action     board.Action // action taken (meaningless when HasAction is false)
	HasAction  bool
	Reward     int         // merge score of the move
	AfterState board.Board // after the slide, before the spawn
	NextState  board.Board // after the spawn
	Final      bool        // terminal transition with no valid NextState
}

// GameState is the episode driver's state.
type GameState int

const (
	Running GameState = iota
	Terminated
)

func (s GameState) String() string {
	if s == Running {
		return "running"
	}
	return "terminated"
}

// TerminationReason says why an episode ended.
type TerminationReason int

const (
	NotTerminated TerminationReason = iota
	NoLegalMove
	BoardFull
)

func (r TerminationReason) String() string {
	switch r {
	case NoLegalMove:
		return "no legal move"
	case BoardFull:
		return "board full"
	}
	return "not terminated"
}

// Episode is the trace of one completed game.
type Episode struct {
	Transitions []Transition
	Reward      int // sum of merge scores
	Moves       int // moves actually made
	MaxRank     int
	MaxTile     int
	Reason      TerminationReason
	Final       board.Board
}

// Game drives a single episode. It is not safe for concurrent use.
type Game struct {
	agent  *Agent
	rng    board.Source
	board  board.Board
	state  GameState
	reason TerminationReason
	trace  Episode
}

// NewGame starts an episode. If start is nil a freshly reset board is used;
// otherwise the game continues from a copy of *start.
func NewGame(agent *Agent, start *board.Board, rng board.Source) *Game {
	g := &Game{agent: agent, rng: rng}
	if start != nil {
		g.board = *start
	} else {
		g.board.Reset(rng)
	}
	return g
}

// Board returns the current board.
func (g *Game) Board() board.Board { return g.board }

// State returns Running or Terminated.
func (g *Game) State() GameState { return g.state }

// Reason returns why the game terminated.
func (g *Game) Reason() TerminationReason { return g.reason }

// Score returns the reward accumulated so far.
func (g *Game) Score() int { return g.trace.Reward }

// Step plays one move and returns the recorded transition. Once the game
// has terminated Step returns (nil, nil).
func (g *Game) Step() (*Transition, error) {
	if g.state == Terminated {
		return nil, nil
	}

	tr := Transition{State: g.board}
	action, ok, err := g.agent.BestAction(g.board)
	if err != nil {
		return nil, err
	}
	if !ok {
		tr.Final = true
		return g.finish(tr, NoLegalMove), nil
	}

	reward, err := g.board.Apply(action)
	if err != nil {
		if errors.Is(err, board.ErrIllegalMove) {
			panic(fmt.Sprintf("engine: best action %v rejected on\n%v", action, tr.State))
		}
		return nil, err
	}
	tr.Action, tr.HasAction = action, true
	tr.Reward = reward
	tr.AfterState = g.board
	g.trace.Reward += reward
	g.trace.Moves++

	if err := g.board.SpawnTile(g.rng); err != nil {
		if errors.Is(err, board.ErrNoSpace) {
			tr.Final = true
			return g.finish(tr, BoardFull), nil
		}
		return nil, err
	}
	tr.NextState = g.board
	g.trace.Transitions = append(g.trace.Transitions, tr)
	return &tr, nil
}

func (g *Game) finish(tr Transition, reason TerminationReason) *Transition {
	g.trace.Transitions = append(g.trace.Transitions, tr)
	g.state = Terminated
	g.reason = reason
	return &tr
}

// Run plays to termination and returns the episode trace.
func (g *Game) Run() (*Episode, error) {
	for g.state == Running {
		if _, err := g.Step(); err != nil {
			return nil, err
		}
	}
	return g.Episode(), nil
}

// Episode returns the trace. It is only complete once the game terminated.
func (g *Game) Episode() *Episode {
	ep := g.trace
	ep.Reason = g.reason
	ep.Final = g.board
	ep.MaxRank = g.board.MaxRank()
	ep.MaxTile = 1 << ep.MaxRank
	return &ep
}

// PlayEpisode plays one game with the current network, without learning.
func (a *Agent) PlayEpisode(start *board.Board, rng board.Source) (*Episode, error) {
	return NewGame(a, start, rng).Run()
}

// LearnFromEpisode runs the backward learning pass: transitions are visited
// newest first and the last (terminal) transition is skipped.
func (a *Agent) LearnFromEpisode(ep *Episode, alpha float64) error {
	trs := ep.Transitions
	if len(trs) == 0 {
		return nil
	}
	for i := len(trs) - 2; i >= 0; i-- {
		if err := a.Learn(trs[i], alpha); err != nil {
			return fmt.Errorf("learning transition %d: %w", i, err)
		}
	}
	return nil
}

// TrainEpisode plays one game and learns from it.
func (a *Agent) TrainEpisode(start *board.Board, rng board.Source, alpha float64) (*Episode, error) {
	ep, err := a.PlayEpisode(start, rng)
	if err != nil {
		return nil, err
	}
	if err := a.LearnFromEpisode(ep, alpha); err != nil {
		return nil, err
	}
	return ep, nil
}
