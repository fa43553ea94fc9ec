package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"firetvcontrol/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // 54 seconds
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// StateUpdate is the JSON message pushed whenever a device's derived state
// changes.
type StateUpdate struct {
	Type     string       `json:"type"`
	DeviceID string       `json:"device_id"`
	State    models.State `json:"state"`
}

type Client struct {
	hub        *WebSocketHub
	conn       *websocket.Conn
	send       chan []byte
	subscribed map[string]bool
}

type WebSocketHub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Client connected (total: %d)", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("Client disconnected (total: %d)", len(h.clients))
		}
	}
}

// BroadcastState sends a state transition to clients subscribed to the
// device (or to "all"). Slow clients simply miss the update; the next
// transition reaches them again.
func (h *WebSocketHub) BroadcastState(deviceID string, state models.State) {
	message, err := json.Marshal(StateUpdate{
		Type:     "state",
		DeviceID: deviceID,
		State:    state,
	})
	if err != nil {
		log.Printf("Failed to marshal state update: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.subscribed[deviceID] || client.subscribed["all"] {
			select {
			case client.send <- message:
			default:
				log.Printf("Warning: client channel full, dropping state update")
			}
		}
	}
}

func HandleWebSocket(hub *WebSocketHub, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 16),
		subscribed: map[string]bool{"all": true},
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump handles incoming subscription messages from the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg struct {
			Type     string `json:"type"`
			DeviceID string `json:"device_id"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			if msg.DeviceID != "" {
				// An explicit subscription narrows the default firehose.
				delete(c.subscribed, "all")
				c.subscribed[msg.DeviceID] = true
				log.Printf("Client subscribed to device %s", msg.DeviceID)
			}
		case "unsubscribe":
			if msg.DeviceID != "" {
				delete(c.subscribed, msg.DeviceID)
				log.Printf("Client unsubscribed from device %s", msg.DeviceID)
			}
		}
	}
}

// writePump handles outgoing state updates plus keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
