package server

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/saurabh-saran/ChatUI/internal/chat"
	"github.com/saurabh-saran/ChatUI/internal/transport"
)

// wsEvent mirrors the channel envelope the clients speak.
type wsEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	db         *sql.DB
	mu         sync.RWMutex
}

type Client struct {
	username string
	conn     *websocket.Conn
	hub      *Hub
	send     chan wsEvent
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, validate origin
		return true
	},
}

func NewHub(db *sql.DB) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		db:         db,
	}
}

// IsUserOnline checks if a user is currently connected
func (h *Hub) IsUserOnline(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[username]
	return ok
}

// OnlineUsernames returns the current presence snapshot.
func (h *Hub) OnlineUsernames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	online := make([]string, 0, len(h.clients))
	for username := range h.clients {
		online = append(online, username)
	}
	return online
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// A reconnect replaces the previous connection for the user
			if old, ok := h.clients[client.username]; ok {
				close(old.send)
			}
			h.clients[client.username] = client
			h.mu.Unlock()
			log.Printf("User %s connected (total: %d)", client.username, len(h.clients))
			h.broadcastUserList()

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.username]; ok && current == client {
				delete(h.clients, client.username)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("User %s disconnected (total: %d)", client.username, len(h.clients))
			h.broadcastUserList()
		}
	}
}

// broadcastUserList pushes the full set of online usernames to every
// connected client. Always a full snapshot, never a patch.
func (h *Hub) broadcastUserList() {
	data, err := json.Marshal(h.OnlineUsernames())
	if err != nil {
		return
	}
	ev := wsEvent{Name: transport.EventUpdateUserList, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.send <- ev:
		default:
			log.Printf("Presence channel full for user %s", client.username)
		}
	}
}

// deliver sends a persisted message to its recipient and echoes it back
// to the sender, both over receiveMessage. Clients run both through the
// same merge path.
func (h *Hub) deliver(msg chat.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ev := wsEvent{Name: transport.EventReceiveMessage, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[msg.Recipient]; ok {
		select {
		case client.send <- ev:
		default:
			log.Printf("Message channel full for user %s", msg.Recipient)
		}
	}
	if msg.Sender == msg.Recipient {
		return
	}
	if client, ok := h.clients[msg.Sender]; ok {
		select {
		case client.send <- ev:
		default:
		}
	}
}

func (h *Hub) HandleWebSocket(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": __("unauthorized")})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Upgrade error: %v", err)
		return
	}

	client := &Client{
		username: username,
		conn:     conn,
		hub:      h,
		send:     make(chan wsEvent, 256),
	}

	h.register <- client

	go client.readPump()
	go client.writePump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var ev wsEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}

		switch ev.Name {
		case transport.EventSendMessage:
			c.handleSendMessage(ev.Data)
		case transport.EventAnnouncePresence:
			// The connection is already bound to the authenticated
			// user; re-announcing just refreshes everyone's roster.
			c.hub.broadcastUserList()
		}
	}
}

func (c *Client) handleSendMessage(data json.RawMessage) {
	var msg chat.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	// The sender is always the authenticated connection owner
	msg.Sender = c.username
	if msg.Recipient == "" || msg.Body == "" {
		return
	}
	if msg.Kind == "" {
		msg.Kind = chat.KindText
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	_, err := c.hub.db.Exec(`
		INSERT INTO messages (sender, recipient, body, kind, attachment_url, attachment_name, client_id, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.Sender, msg.Recipient, msg.Body, string(msg.Kind), msg.AttachmentURL, msg.AttachmentName, msg.ClientID, msg.SentAt)
	if err != nil {
		log.Printf("Failed to save message: %v", err)
		return
	}

	c.hub.deliver(msg)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
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
