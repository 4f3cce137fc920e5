package api

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/yourusername/td2048/internal/board"
	"github.com/yourusername/td2048/internal/boardid"
	"github.com/yourusername/td2048/pkg/engine"
)

// MaxPlayDelay caps the pause between streamed moves.
const MaxPlayDelay = time.Second

// sseHeaders prepares w for an event stream.
func sseHeaders(w http.ResponseWriter) (http.Flusher, bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher, ok := w.(http.Flusher)
	return flusher, ok
}

// EvaluateSSE streams evaluation progress.
// GET /api/evaluate/stream?games=...&workers=...&seed=...
func (h *Handlers) EvaluateSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}
	if h.agent == nil {
		writeSSEError(w, "no agent loaded")
		return
	}

	query := r.URL.Query()
	opts, err := evalOptions(
		parseIntParam(query.Get("games"), 100),
		parseIntParam(query.Get("workers"), 0),
		parseInt64Param(query.Get("seed"), 0),
	)
	if err != nil {
		writeSSEError(w, err.Error())
		return
	}

	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeSSEError(w, "server busy")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	callback := func(p engine.EvalProgress) {
		writeSSEEvent(w, "progress", p)
		flusher.Flush()
	}

	result, err := h.agent.EvaluateWithProgress(r.Context(), opts, callback)
	if err != nil {
		if r.Context().Err() == nil {
			writeSSEError(w, "evaluation failed: "+err.Error())
		}
		return
	}

	writeSSEEvent(w, "result", result)
	flusher.Flush()

	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// PlaySSE streams one greedy game move by move.
// GET /api/play/stream?seed=...&board_id=...&delay_ms=...
func (h *Handlers) PlaySSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseHeaders(w)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}
	if h.agent == nil {
		writeSSEError(w, "no agent loaded")
		return
	}

	query := r.URL.Query()
	seed := parseInt64Param(query.Get("seed"), 0)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	delay := time.Duration(parseIntParam(query.Get("delay_ms"), 0)) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	if delay > MaxPlayDelay {
		delay = MaxPlayDelay
	}

	var start *board.Board
	if id := query.Get("board_id"); id != "" {
		b, err := h.parseBoard(nil, id)
		if err != nil {
			writeSSEError(w, "invalid board: "+err.Error())
			return
		}
		start = &b
	}

	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeSSEError(w, "server busy")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	game := engine.NewGame(h.agent, start, rand.New(rand.NewSource(seed)))
	writeSSEEvent(w, "start", map[string]interface{}{
		"seed":  seed,
		"board": game.Board().Ranks(),
	})
	flusher.Flush()

	for move := 1; game.State() == engine.Running; {
		tr, err := game.Step()
		if err != nil {
			writeSSEError(w, "game failed: "+err.Error())
			return
		}
		if tr.HasAction {
			b := game.Board()
			id, _ := boardid.ID(b)
			writeSSEEvent(w, "move", PlayMoveEvent{
				Move:    move,
				Action:  int(tr.Action),
				Name:    tr.Action.String(),
				Reward:  tr.Reward,
				Score:   game.Score(),
				Board:   b.Ranks(),
				BoardID: id,
			})
			flusher.Flush()
			move++
		}

		if delay > 0 && game.State() == engine.Running {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		} else if r.Context().Err() != nil {
			return
		}
	}

	ep := game.Episode()
	writeSSEEvent(w, "result", PlayResult{
		Score:   ep.Reward,
		Moves:   ep.Moves,
		MaxTile: ep.MaxTile,
		Reason:  ep.Reason.String(),
		Board:   ep.Final.Ranks(),
	})
	flusher.Flush()

	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// parseIntParam parses an integer from a string with a default value.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	var val int
	if _, err := fmt.Sscanf(s, "%d", &val); err != nil {
		return defaultVal
	}
	return val
}

func parseInt64Param(s string, defaultVal int64) int64 {
	if s == "" {
		return defaultVal
	}
	var val int64
	if _, err := fmt.Sscanf(s, "%d", &val); err != nil {
		return defaultVal
	}
	return val
}
