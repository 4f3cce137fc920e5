package engine

import (
	"sort"

	"github.com/yourusername/td2048/internal/board"
)

// ActionEval is one action's evaluation from a position.
type ActionEval struct {
	Action     board.Action
	Legal      bool
	Reward     int         // merge score of the move
	Value      float64     // network value of the afterstate
	Score      float64     // Reward + Value
	AfterState board.Board // valid only when Legal
}

// AnalysisResult contains every action ranked best first. Illegal actions
// come last; ties keep board.SearchOrder.
type AnalysisResult struct {
	Actions  []ActionEval
	Best     board.Action
	HasBest  bool
	NumLegal int
}

// Analyze evaluates all four actions from b. The best entry always agrees
// with BestAction.
func (a *Agent) Analyze(b board.Board) (*AnalysisResult, error) {
	result := &AnalysisResult{Actions: make([]ActionEval, 0, board.NumActions)}

	for _, act := range board.SearchOrder {
		ev := ActionEval{Action: act}
		after, reward, err := b.Move(act)
		if err == nil {
			v, err := a.net.Value(after)
			if err != nil {
				return nil, err
			}
			ev.Legal = true
			ev.Reward = reward
			ev.Value = v
			ev.Score = float64(reward) + v
			ev.AfterState = after
			result.NumLegal++
		}
		result.Actions = append(result.Actions, ev)
	}

	sort.SliceStable(result.Actions, func(i, j int) bool {
		ai, aj := result.Actions[i], result.Actions[j]
		if ai.Legal != aj.Legal {
			return ai.Legal
		}
		return ai.Legal && ai.Score > aj.Score
	})

	if result.NumLegal > 0 {
		result.Best = result.Actions[0].Action
		result.HasBest = true
	}
	return result, nil
}
