package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	srv := NewServer(getTestAgent(), DefaultConfig(), "test", log)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// sseEvents returns the event names of a stream, in order.
func sseEvents(body string) []string {
	var events []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, name)
		}
	}
	return events
}

func TestEvaluateSSE(t *testing.T) {
	h := NewHandlers(getTestAgent(), "1.0.0")
	req := httptest.NewRequest("GET", "/api/evaluate/stream?games=6&workers=2&seed=5", nil)
	w := httptest.NewRecorder()
	h.EvaluateSSE(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	events := sseEvents(w.Body.String())
	if len(events) < 3 {
		t.Fatalf("events = %v", events)
	}
	if events[0] != "progress" {
		t.Errorf("first event = %q, want progress", events[0])
	}
	if events[len(events)-2] != "result" || events[len(events)-1] != "done" {
		t.Errorf("stream should end with result, done: %v", events)
	}
}

func TestEvaluateSSEInvalid(t *testing.T) {
	h := NewHandlers(getTestAgent(), "1.0.0")
	req := httptest.NewRequest("GET", "/api/evaluate/stream?games=-4", nil)
	w := httptest.NewRecorder()
	h.EvaluateSSE(w, req)

	if events := sseEvents(w.Body.String()); len(events) != 1 || events[0] != "error" {
		t.Errorf("events = %v, want [error]", events)
	}
}

func TestPlaySSE(t *testing.T) {
	h := NewHandlers(getTestAgent(), "1.0.0")
	req := httptest.NewRequest("GET", "/api/play/stream?seed=3", nil)
	w := httptest.NewRecorder()
	h.PlaySSE(w, req)

	body := w.Body.String()
	events := sseEvents(body)
	if len(events) < 4 || events[0] != "start" {
		t.Fatalf("events = %v", events)
	}
	if events[len(events)-2] != "result" || events[len(events)-1] != "done" {
		t.Errorf("stream should end with result, done")
	}

	moves := 0
	for _, e := range events {
		if e == "move" {
			moves++
		}
	}

	var result PlayResult
	for _, line := range strings.Split(body, "\n") {
		if data, ok := strings.CutPrefix(line, "data: "); ok && strings.Contains(data, `"reason"`) {
			if err := json.Unmarshal([]byte(data), &result); err != nil {
				t.Fatalf("bad result: %v", err)
			}
		}
	}
	if result.Moves != moves {
		t.Errorf("result says %d moves, streamed %d", result.Moves, moves)
	}
	if result.Reason != "no legal move" {
		t.Errorf("Reason = %q", result.Reason)
	}
}

func TestPlaySSEFromGameOverBoard(t *testing.T) {
	h := NewHandlers(getTestAgent(), "1.0.0")
	req := httptest.NewRequest("GET", "/api/play/stream?board_id=1212212112122121", nil)
	w := httptest.NewRecorder()
	h.PlaySSE(w, req)

	events := sseEvents(w.Body.String())
	want := []string{"start", "result", "done"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestPlaySSEBadBoard(t *testing.T) {
	h := NewHandlers(getTestAgent(), "1.0.0")
	req := httptest.NewRequest("GET", "/api/play/stream?board_id=nope", nil)
	w := httptest.NewRecorder()
	h.PlaySSE(w, req)

	if events := sseEvents(w.Body.String()); len(events) != 1 || events[0] != "error" {
		t.Errorf("events = %v, want [error]", events)
	}
}

func TestRoutes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		method, path string
		body         string
		wantStatus   int
	}{
		{"GET", "/api/health", "", http.StatusOK},
		{"POST", "/api/predict", `{"board_id":"1000000000000000"}`, http.StatusOK},
		{"GET", "/api/predict", "", http.StatusMethodNotAllowed},
		{"POST", "/api/analyze", `{"board_id":"1000000000000000"}`, http.StatusOK},
		{"OPTIONS", "/api/predict", "", http.StatusOK},
		{"GET", "/api/unknown", "", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, strings.NewReader(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.wantStatus {
				t.Errorf("Status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
				t.Error("missing CORS header")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("generated request id %q is not a uuid", resp.Header.Get(RequestIDHeader))
	}

	want := uuid.NewString()
	req, _ := http.NewRequest("GET", ts.URL+"/api/health", nil)
	req.Header.Set(RequestIDHeader, want)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != want {
		t.Errorf("request id = %q, want %q", got, want)
	}

	req, _ = http.NewRequest("GET", ts.URL+"/api/health", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got == "not-a-uuid" {
		t.Error("invalid request id was echoed")
	}
}

// ============================================================================
// WebSocket Tests
// ============================================================================

// wsResult is WSResponse with the payload left raw.
type wsResult struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func dialWS(t *testing.T) *websocket.Conn {
	t.Helper()
	ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("Status = %d, want %d", resp.StatusCode, http.StatusSwitchingProtocols)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func roundTrip(t *testing.T, ws *websocket.Conn, msg WSMessage) wsResult {
	t.Helper()
	if err := ws.WriteJSON(msg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp wsResult
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if resp.ID != msg.ID {
		t.Errorf("Response ID = %q, want %q", resp.ID, msg.ID)
	}
	return resp
}

func TestWebSocketPing(t *testing.T) {
	ws := dialWS(t)
	resp := roundTrip(t, ws, WSMessage{Type: "ping", ID: "test-ping-1"})
	if resp.Type != "pong" {
		t.Errorf("Response type = %q, want %q", resp.Type, "pong")
	}
}

func TestWebSocketPredict(t *testing.T) {
	ws := dialWS(t)
	payload, _ := json.Marshal(PredictRequest{Board: pairBoard})
	resp := roundTrip(t, ws, WSMessage{Type: "predict", ID: "p-1", Payload: payload})

	if resp.Type != "result" {
		t.Fatalf("Response type = %q (%s)", resp.Type, resp.Error)
	}
	var pred PredictResponse
	if err := json.Unmarshal(resp.Payload, &pred); err != nil {
		t.Fatal(err)
	}
	if pred.Name != "left" || pred.Action != 3 {
		t.Errorf("prediction = %+v, want left", pred)
	}
}

func TestWebSocketAnalyze(t *testing.T) {
	ws := dialWS(t)
	payload, _ := json.Marshal(AnalyzeRequest{BoardID: "1000000000000000"})
	resp := roundTrip(t, ws, WSMessage{Type: "analyze", ID: "a-1", Payload: payload})

	if resp.Type != "result" {
		t.Fatalf("Response type = %q (%s)", resp.Type, resp.Error)
	}
	var a AnalyzeResponse
	if err := json.Unmarshal(resp.Payload, &a); err != nil {
		t.Fatal(err)
	}
	if a.NumLegal != 2 || a.BestName != "right" {
		t.Errorf("analysis = %+v", a)
	}
}

func TestWebSocketErrors(t *testing.T) {
	ws := dialWS(t)
	over, _ := json.Marshal(PredictRequest{Board: gameOver})

	tests := []struct {
		name     string
		msg      WSMessage
		wantCode string
	}{
		{"unknown type", WSMessage{Type: "resign", ID: "e-1"}, CodeInvalidParams},
		{"bad payload", WSMessage{Type: "predict", ID: "e-2", Payload: json.RawMessage(`[1,2]`)}, CodeInvalidJSON},
		{"missing board", WSMessage{Type: "analyze", ID: "e-3", Payload: json.RawMessage(`{}`)}, CodeMissingBoard},
		{"game over", WSMessage{Type: "predict", ID: "e-4", Payload: over}, CodeNoLegalMove},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := roundTrip(t, ws, tc.msg)
			if resp.Type != "error" || resp.Code != tc.wantCode {
				t.Errorf("response = %+v, want error %s", resp, tc.wantCode)
			}
		})
	}
}
