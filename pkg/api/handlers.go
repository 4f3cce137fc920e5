package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/td2048/internal/board"
	"github.com/yourusername/td2048/internal/boardid"
	"github.com/yourusername/td2048/pkg/engine"
)

// MaxEvalGames caps the games of a single evaluation request.
const MaxEvalGames = 10000

var errMissingBoard = errors.New("board or board_id is required")

// Handlers holds the HTTP handlers and the agent they serve. The agent is
// only read; nothing here trains it.
type Handlers struct {
	agent       *engine.Agent
	version     string
	pool        *WorkerPool
	log         logrus.FieldLogger
	gamesPlayed int64
}

// NewHandlers creates a new Handlers instance without a worker pool.
func NewHandlers(agent *engine.Agent, version string) *Handlers {
	return NewHandlersWithPool(agent, version, nil)
}

// NewHandlersWithPool creates a new Handlers instance with a worker pool.
func NewHandlersWithPool(agent *engine.Agent, version string, pool *WorkerPool) *Handlers {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Handlers{
		agent:   agent,
		version: version,
		pool:    pool,
		log:     log,
	}
}

// SetLogger replaces the handlers' logger.
func (h *Handlers) SetLogger(log logrus.FieldLogger) {
	if log != nil {
		h.log = log
	}
}

// SetGamesPlayed records the training games behind the agent for /api/health.
func (h *Handlers) SetGamesPlayed(n int64) {
	h.gamesPlayed = n
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// parseBoard resolves a request's board, checking ranks against the
// network's ceiling.
func (h *Handlers) parseBoard(ranks [][]int, id string) (board.Board, error) {
	var (
		b   board.Board
		err error
	)
	switch {
	case id != "":
		b, err = boardid.BoardFromID(id)
	case ranks != nil:
		b, err = board.FromRanks(ranks)
	default:
		return b, errMissingBoard
	}
	if err != nil {
		return b, err
	}
	if err := b.Validate(h.agent.Network().MaxRank()); err != nil {
		return b, err
	}
	return b, nil
}

// writeBoardError maps a parseBoard error to a 400 response.
func writeBoardError(w http.ResponseWriter, err error) {
	if errors.Is(err, errMissingBoard) {
		writeError(w, http.StatusBadRequest, err.Error(), CodeMissingBoard)
		return
	}
	writeError(w, http.StatusBadRequest, "invalid board: "+err.Error(), CodeInvalidBoard)
}

// writeAgentError maps an agent error to a response.
func (h *Handlers) writeAgentError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, board.ErrRankOverflow) {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), CodeRankOverflow)
		return
	}
	requestLogger(h.log, r).WithError(err).Error("agent failed")
	writeError(w, http.StatusInternalServerError, "internal error", CodeInternal)
}

// ready reports whether an agent is loaded, writing 503 if not.
func (h *Handlers) ready(w http.ResponseWriter) bool {
	if h.agent == nil {
		writeError(w, http.StatusServiceUnavailable, "no agent loaded", CodeNotReady)
		return false
	}
	return true
}

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		Version:     h.version,
		Ready:       h.agent != nil,
		GamesPlayed: h.gamesPlayed,
	}
	if h.agent != nil {
		resp.Network = h.agent.Network().String()
	}
	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// Predict handles POST /api/predict
func (h *Handlers) Predict(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", CodeServerBusy)
			return
		}
		defer h.pool.ReleaseFast()
	}
	if !h.ready(w) {
		return
	}

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidJSON)
		return
	}
	b, err := h.parseBoard(req.Board, req.BoardID)
	if err != nil {
		writeBoardError(w, err)
		return
	}

	resp, err := h.predict(b)
	if err != nil {
		if errors.Is(err, errNoLegalMove) {
			writeError(w, http.StatusUnprocessableEntity, err.Error(), CodeNoLegalMove)
			return
		}
		h.writeAgentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

var errNoLegalMove = errors.New("no legal action: game over")

// predict is shared by the HTTP and WebSocket paths.
func (h *Handlers) predict(b board.Board) (*PredictResponse, error) {
	act, ok, err := h.agent.BestAction(b)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoLegalMove
	}
	id, _ := boardid.ID(b)
	return &PredictResponse{Action: int(act), Name: act.String(), BoardID: id}, nil
}

// Analyze handles POST /api/analyze
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", CodeServerBusy)
			return
		}
		defer h.pool.ReleaseFast()
	}
	if !h.ready(w) {
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidJSON)
		return
	}
	b, err := h.parseBoard(req.Board, req.BoardID)
	if err != nil {
		writeBoardError(w, err)
		return
	}

	resp, err := h.analyze(b)
	if err != nil {
		h.writeAgentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) analyze(b board.Board) (*AnalyzeResponse, error) {
	res, err := h.agent.Analyze(b)
	if err != nil {
		return nil, err
	}
	return AnalysisToResponse(b, res), nil
}

// AnalysisToResponse converts an engine analysis to the wire format.
func AnalysisToResponse(b board.Board, res *engine.AnalysisResult) *AnalyzeResponse {
	id, _ := boardid.ID(b)
	resp := &AnalyzeResponse{
		Actions:  make([]ActionResponse, len(res.Actions)),
		NumLegal: res.NumLegal,
		GameOver: !res.HasBest,
		BoardID:  id,
	}
	for i, ev := range res.Actions {
		ar := ActionResponse{
			Action: int(ev.Action),
			Name:   ev.Action.String(),
			Legal:  ev.Legal,
		}
		if ev.Legal {
			ar.Reward = ev.Reward
			ar.Value = ev.Value
			ar.Score = ev.Score
			ar.AfterState = ev.AfterState.Ranks()
		}
		resp.Actions[i] = ar
	}
	if res.HasBest {
		best := int(res.Best)
		resp.Best = &best
		resp.BestName = res.Best.String()
	}
	return resp
}

// Evaluate handles POST /api/evaluate
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidJSON)
		return
	}
	opts, err := evalOptions(req.Games, req.Workers, req.Seed)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidParams)
		return
	}

	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", CodeServerBusy)
			return
		}
		defer h.pool.ReleaseSlow()
	}

	result, err := h.agent.Evaluate(r.Context(), opts)
	if err != nil {
		if r.Context().Err() != nil {
			return // client went away
		}
		h.writeAgentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// evalOptions validates evaluation parameters.
func evalOptions(games, workers int, seed int64) (engine.EvalOptions, error) {
	if games == 0 {
		games = 100
	}
	if games < 0 || games > MaxEvalGames {
		return engine.EvalOptions{}, fmt.Errorf("games must be between 1 and %d", MaxEvalGames)
	}
	if workers < 0 {
		return engine.EvalOptions{}, fmt.Errorf("workers must not be negative")
	}
	return engine.EvalOptions{Games: games, Workers: workers, Seed: seed}, nil
}
