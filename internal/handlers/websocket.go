package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PaddyOakTree/ai-project-planner/internal/authority"
	"github.com/PaddyOakTree/ai-project-planner/internal/hub"
	"github.com/PaddyOakTree/ai-project-planner/internal/logger"
	"github.com/PaddyOakTree/ai-project-planner/internal/middleware"
	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxMessageSize = 4096

	// Outbound buffer per connection; a full buffer marks the
	// connection stale.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin checking is delegated to the CORS layer.
	},
}

// inboundFrame is what clients send over the socket.
type inboundFrame struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// WebSocketHandler upgrades connections and joins them to their team room.
type WebSocketHandler struct {
	hub  *hub.Hub
	auth *authority.Authority
	log  *logger.Logger
}

func NewWebSocketHandler(h *hub.Hub, auth *authority.Authority, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: h, auth: auth, log: log}
}

// Handle authenticates, verifies room membership, upgrades, and starts the
// read/write pumps. Socket close triggers a full hub disconnect.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	teamID, err := strconv.ParseInt(r.URL.Query().Get("team_id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"team_id is required"}`, http.StatusBadRequest)
		return
	}

	member, err := h.auth.IsMember(r.Context(), teamID, user.ID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if !member {
		respondWithError(w, fmt.Errorf("team %d: %w", teamID, models.ErrPermissionDenied))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: user.ID,
		teamID: teamID,
		hub:    h.hub,
		log:    h.log,
	}

	h.hub.Register(client)
	h.hub.Join(teamID, client)
	h.log.Debug("websocket joined", "team_id", teamID, "user_id", user.ID)

	go client.writePump()
	go client.readPump()
}

// wsClient adapts one websocket connection to the hub's Conn interface.
type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	userID int64
	teamID int64
	hub    *hub.Hub
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

func (c *wsClient) UserID() int64 { return c.userID }

// Send queues an event for the write pump. A full buffer means the peer has
// stopped draining; report it stale rather than block a room relay.
func (c *wsClient) Send(ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection closed for user %d", c.userID)
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full for user %d", c.userID)
	}
}

// Close shuts the outbound channel so the write pump sends a close frame and
// tears down the socket, which in turn unblocks the read pump. Idempotent.
func (c *wsClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// readPump parses inbound frames and forwards them to the hub.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("websocket closed unexpectedly", "user_id", c.userID, "error", err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "message":
			if frame.Content == "" {
				continue
			}
			if _, err := c.hub.PostMessage(context.Background(), c.teamID, c.userID, frame.Content, models.MessageText); err != nil {
				c.log.Warn("post message failed", "team_id", c.teamID, "user_id", c.userID, "error", err)
			}
		case "typing":
			c.hub.SetTyping(c.teamID, c.userID, frame.IsTyping)
		}
	}
}

// writePump drains the send channel to the peer and keeps the connection
// alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
