package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"foreman/internal/orchestrator"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsQuery is one inbound client message.
type wsQuery struct {
	Query   string                 `json:"query"`
	Stream  bool                   `json:"stream"`
	Context map[string]interface{} `json:"context"`
}

// wsEvent is one outbound message. Type is chunk, response, done or error.
type wsEvent struct {
	Type     string      `json:"type"`
	Content  string      `json:"content,omitempty"`
	Agent    string      `json:"agent,omitempty"`
	Response interface{} `json:"response,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// wsConnection maintains one WebSocket session with a client.
type wsConnection struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

// HandleWebSocket upgrades the request and starts the session pumps.
func (s *Server) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ws := &wsConnection{
		conn:   conn,
		send:   make(chan []byte, 256),
		orch:   s.orch,
		logger: s.logger,
	}

	go ws.writePump()
	go ws.readPump()
}

// readPump pumps messages from the WebSocket connection to the handler.
func (c *wsConnection) readPump() {
	defer func() {
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the server to the WebSocket connection.
func (c *wsConnection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one inbound query.
func (c *wsConnection) handleMessage(message []byte) {
	var req wsQuery
	if err := json.Unmarshal(message, &req); err != nil {
		c.sendEvent(wsEvent{Type: "error", Error: "malformed message: " + err.Error()})
		return
	}
	if req.Query == "" {
		c.sendEvent(wsEvent{Type: "error", Error: "query is required"})
		return
	}

	// Resolve in the background so the read pump keeps draining.
	go func() {
		if req.Stream {
			role, err := c.orch.SubmitQueryStreaming(context.Background(), req.Query, req.Context, func(chunk string) error {
				c.sendEvent(wsEvent{Type: "chunk", Content: chunk})
				return nil
			})
			if err != nil {
				c.sendEvent(wsEvent{Type: "error", Error: err.Error()})
				return
			}
			c.sendEvent(wsEvent{Type: "done", Agent: string(role)})
			return
		}

		resp, err := c.orch.SubmitQuery(context.Background(), req.Query, req.Context)
		if err != nil {
			c.sendEvent(wsEvent{Type: "error", Error: err.Error()})
			return
		}
		c.sendEvent(wsEvent{Type: "response", Agent: resp.AgentName, Response: resp})
	}()
}

// sendEvent queues one outbound message, dropping it when the client
// cannot keep up.
func (c *wsConnection) sendEvent(ev wsEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		c.logger.Warn("websocket event not serializable", "type", ev.Type, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case c.send <- data:
	default:
		c.logger.Warn("websocket buffer full, dropping message", "type", ev.Type)
	}
}
