// Package api provides the HTTP/JSON, WebSocket and SSE interface to a
// trained 2048 agent.
package api

import "github.com/yourusername/td2048/pkg/engine"

// ============================================================================
// Request Types
// ============================================================================

// PredictRequest is the request body for the best action. Exactly one of
// Board (4x4 ranks) or BoardID should be set; BoardID wins if both are.
type PredictRequest struct {
	Board   [][]int `json:"board,omitempty"`    // Ranks, row-major, 0 = empty
	BoardID string  `json:"board_id,omitempty"` // 16 hex digits
}

// AnalyzeRequest is the request body for a per-action breakdown.
type AnalyzeRequest struct {
	Board   [][]int `json:"board,omitempty"`
	BoardID string  `json:"board_id,omitempty"`
}

// EvaluateRequest is the request body for a self-play benchmark.
type EvaluateRequest struct {
	Games   int   `json:"games,omitempty"`   // Number of games (default 100)
	Workers int   `json:"workers,omitempty"` // Parallel workers (0 = GOMAXPROCS)
	Seed    int64 `json:"seed,omitempty"`    // Random seed (0 = random)
}

// ============================================================================
// Response Types
// ============================================================================

// PredictResponse is the response for the best action.
type PredictResponse struct {
	Action  int    `json:"action"`   // 0=up, 1=right, 2=down, 3=left
	Name    string `json:"name"`     // Action name
	BoardID string `json:"board_id"` // ID of the evaluated board
}

// ActionResponse is one action of an analysis.
type ActionResponse struct {
	Action     int     `json:"action"`
	Name       string  `json:"name"`
	Legal      bool    `json:"legal"`
	Reward     int     `json:"reward"`                // Merge score
	Value      float64 `json:"value"`                 // Afterstate value
	Score      float64 `json:"score"`                 // Reward + value
	AfterState [][]int `json:"after_state,omitempty"` // Board after the slide
}

// AnalyzeResponse is the response for an analysis, best action first.
type AnalyzeResponse struct {
	Actions  []ActionResponse `json:"actions"`
	Best     *int             `json:"best,omitempty"` // nil when game over
	BestName string           `json:"best_name,omitempty"`
	NumLegal int              `json:"num_legal"`
	GameOver bool             `json:"game_over"`
	BoardID  string           `json:"board_id"`
}

// EvaluateResponse is the response for a self-play benchmark.
type EvaluateResponse = engine.EvalResult

// PlayMoveEvent is streamed for every move of a played game.
type PlayMoveEvent struct {
	Move    int     `json:"move"` // 1-based move number
	Action  int     `json:"action"`
	Name    string  `json:"name"`
	Reward  int     `json:"reward"`
	Score   int     `json:"score"` // Cumulative score
	Board   [][]int `json:"board"` // After the spawn
	BoardID string  `json:"board_id"`
}

// PlayResult is streamed when a played game ends.
type PlayResult struct {
	Score   int     `json:"score"`
	Moves   int     `json:"moves"`
	MaxTile int     `json:"max_tile"`
	Reason  string  `json:"reason"`
	Board   [][]int `json:"board"`
}

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error   string `json:"error"`             // Error message
	Code    string `json:"code,omitempty"`    // Error code
	Details string `json:"details,omitempty"` // Additional details
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status      string     `json:"status"`                 // "ok" or "error"
	Version     string     `json:"version"`                // Server version
	Ready       bool       `json:"ready"`                  // Whether an agent is loaded
	GamesPlayed int64      `json:"games_played,omitempty"` // Training games behind the agent
	Network     string     `json:"network,omitempty"`      // Network summary
	Pool        *PoolStats `json:"pool,omitempty"`         // Worker pool statistics
}

// Error codes.
const (
	CodeInvalidJSON   = "INVALID_JSON"
	CodeMissingBoard  = "MISSING_BOARD"
	CodeInvalidBoard  = "INVALID_BOARD"
	CodeNoLegalMove   = "NO_LEGAL_MOVE"
	CodeRankOverflow  = "RANK_OVERFLOW"
	CodeInvalidParams = "INVALID_PARAMS"
	CodeServerBusy    = "SERVER_BUSY"
	CodeNotReady      = "NOT_READY"
	CodeInternal      = "INTERNAL_ERROR"
)
