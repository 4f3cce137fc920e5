package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is a generic WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`    // "predict", "analyze" or "ping"
	ID      string          `json:"id"`      // Request ID for correlating responses
	Payload json.RawMessage `json:"payload"` // PredictRequest or AnalyzeRequest
}

// WSResponse is a generic WebSocket response.
type WSResponse struct {
	Type    string      `json:"type"`              // "result", "error" or "pong"
	ID      string      `json:"id,omitempty"`      // Request ID
	Payload interface{} `json:"payload,omitempty"` // Response data
	Error   string      `json:"error,omitempty"`   // Error message if any
	Code    string      `json:"code,omitempty"`    // Error code if any
}

// WSClient is one connected WebSocket client. Messages are handled in
// order on the read goroutine; a separate goroutine writes responses.
type WSClient struct {
	conn     *websocket.Conn
	handlers *Handlers
	sendChan chan WSResponse
}

// WebSocket handles WebSocket connections for interactive play.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(h.log, r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	log.Debug("websocket connected")
	client := &WSClient{conn: conn, handlers: h, sendChan: make(chan WSResponse, 256)}
	go client.writePump()
	client.readPump()
	log.Debug("websocket closed")
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() { close(c.sendChan); c.conn.Close() }()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) sendError(id, msg, code string) {
	c.sendChan <- WSResponse{Type: "error", ID: id, Error: msg, Code: code}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "ping":
		c.sendChan <- WSResponse{Type: "pong", ID: msg.ID}
		return
	case "predict", "analyze":
	default:
		c.sendError(msg.ID, "unknown message type", CodeInvalidParams)
		return
	}

	h := c.handlers
	if h.agent == nil {
		c.sendError(msg.ID, "no agent loaded", CodeNotReady)
		return
	}

	// Predict and analyze requests share a shape.
	var req PredictRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendError(msg.ID, "invalid payload", CodeInvalidJSON)
		return
	}
	b, err := h.parseBoard(req.Board, req.BoardID)
	if err != nil {
		code := CodeInvalidBoard
		if errors.Is(err, errMissingBoard) {
			code = CodeMissingBoard
		}
		c.sendError(msg.ID, err.Error(), code)
		return
	}

	var payload interface{}
	if msg.Type == "predict" {
		payload, err = h.predict(b)
	} else {
		payload, err = h.analyze(b)
	}
	if err != nil {
		code := CodeRankOverflow
		if errors.Is(err, errNoLegalMove) {
			code = CodeNoLegalMove
		}
		c.sendError(msg.ID, err.Error(), code)
		return
	}
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: payload}
}
