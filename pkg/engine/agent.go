// Package engine provides the public API for the 2048 agent: greedy action
// selection over an n-tuple network, TD(0) afterstate learning, the episode
// driver and the training loop built on top of them.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/yourusername/td2048/internal/board"
	"github.com/yourusername/td2048/internal/ntuple"
)

// ErrIncompleteTransition is returned by Learn for the terminal transition
// of an episode, which has no next state to bootstrap from.
var ErrIncompleteTransition = errors.New("transition has no next state")

// Agent chooses moves by one-ply lookahead over a value network and learns
// that network from played episodes.
type Agent struct {
	net *ntuple.Network
}

// NewAgent creates an agent with a fresh, all-zero network.
func NewAgent(tuples []ntuple.Tuple, maxRank int) (*Agent, error) {
	net, err := ntuple.NewNetwork(tuples, maxRank)
	if err != nil {
		return nil, fmt.Errorf("creating network: %w", err)
	}
	return &Agent{net: net}, nil
}

// NewDefaultAgent creates an agent with the reference tuples and ceiling.
func NewDefaultAgent() *Agent {
	a, err := NewAgent(ntuple.DefaultTuples(), ntuple.DefaultMaxRank)
	if err != nil {
		panic(err)
	}
	return a
}

// NewAgentWithNetwork wraps an existing (for example, loaded) network.
func NewAgentWithNetwork(net *ntuple.Network) *Agent {
	return &Agent{net: net}
}

// Network returns the agent's value network.
func (a *Agent) Network() *ntuple.Network {
	return a.net
}

// Value returns the network's estimate for an afterstate.
func (a *Agent) Value(b board.Board) (float64, error) {
	return a.net.Value(b)
}

// BestAction returns the action maximising immediate reward plus the value
// of the resulting afterstate. Actions are tried in board.SearchOrder and
// ties keep the earliest. ok is false when no action is legal. The only
// possible error is a rank overflow.
func (a *Agent) BestAction(b board.Board) (action board.Action, ok bool, err error) {
	best := math.Inf(-1)
	for _, act := range board.SearchOrder {
		after, reward, err := b.Move(act)
		if err != nil {
			continue
		}
		v, err := a.net.Value(after)
		if err != nil {
			return 0, false, err
		}
		if score := float64(reward) + v; score > best {
			best = score
			action = act
			ok = true
		}
	}
	return action, ok, nil
}

// Learn applies one TD(0) update on the transition's afterstate:
//
//	target = r' + V(s'_after)   (0 if s_next is terminal)
//	V(s_after) += alpha * (target - V(s_after))
//
// where r' and s'_after come from the greedy action in s_next.
func (a *Agent) Learn(tr Transition, alpha float64) error {
	if tr.Final {
		return ErrIncompleteTransition
	}

	target := 0.0
	next, ok, err := a.BestAction(tr.NextState)
	if err != nil {
		return err
	}
	if ok {
		afterNext, rewardNext, err := tr.NextState.Move(next)
		if err != nil {
			panic(fmt.Sprintf("engine: best action %v rejected on\n%v: %v", next, tr.NextState, err))
		}
		v, err := a.net.Value(afterNext)
		if err != nil {
			return err
		}
		target = float64(rewardNext) + v
	}

	current, err := a.net.Value(tr.AfterState)
	if err != nil {
		return err
	}
	if _, err := a.net.Accumulate(tr.AfterState, alpha*(target-current)); err != nil {
		return err
	}
	return nil
}
