// Package transport maintains the single persistent event channel to the
// server. One Handle is constructed per running client and injected into
// every screen that needs it.
package transport

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Channel event names, matching the server contract.
const (
	EventAnnouncePresence = "announcePresence"
	EventSendMessage      = "sendMessage"
	EventReceiveMessage   = "receiveMessage"
	EventUpdateUserList   = "updateUserList"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	maxBackoff = 30 * time.Second
)

// Event is the wire envelope for channel events.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Handler is invoked once per inbound event of the subscribed name.
type Handler func(data json.RawMessage)

type subscription struct {
	id int
	fn Handler
}

// Handle is the session-scoped connection to the server's event channel.
// Connection failures are retried with backoff and never surface to
// callers; publishing is fire-and-forget.
type Handle struct {
	mu        sync.Mutex
	endpoint  string
	started   bool
	conn      *websocket.Conn
	announced string

	subs   map[string][]subscription
	nextID int

	send   chan Event
	closed chan struct{}
	once   sync.Once
}

func NewHandle() *Handle {
	return &Handle{
		subs:   make(map[string][]subscription),
		send:   make(chan Event, 256),
		closed: make(chan struct{}),
	}
}

// Connect opens the channel to endpoint. Idempotent: connecting again to
// the same endpoint reuses the existing connection; a different endpoint
// forces a re-dial.
func (h *Handle) Connect(endpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		if endpoint == h.endpoint {
			return
		}
		h.endpoint = endpoint
		// Drop the current connection; the run loop re-dials.
		if h.conn != nil {
			h.conn.Close()
		}
		return
	}

	h.endpoint = endpoint
	h.started = true
	go h.run()
}

// AnnouncePresence tells the server which user this client instance
// represents. Safe to call on every screen mount; re-announced after
// each reconnect.
func (h *Handle) AnnouncePresence(username string) {
	h.mu.Lock()
	h.announced = username
	h.mu.Unlock()
	h.Publish(EventAnnouncePresence, username)
}

// Publish sends an event on the channel, best effort. Events queued
// while disconnected are flushed once the connection is back.
func (h *Handle) Publish(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("transport: drop %s: %v", event, err)
		return
	}

	select {
	case h.send <- Event{Name: event, Data: data}:
	default:
		log.Printf("transport: send queue full, dropping %s", event)
	}
}

// Subscribe registers a handler for an event name. Every subscriber
// receives every event (fan-out). The returned function removes the
// subscription.
func (h *Handle) Subscribe(event string, fn Handler) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[event] = append(h.subs[event], subscription{id: id, fn: fn})
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subs[event]
		for i, s := range subs {
			if s.id == id {
				h.subs[event] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Close tears the channel down. Only used at process exit and in tests;
// during a session the handle stays open.
func (h *Handle) Close() {
	h.once.Do(func() { close(h.closed) })
	h.mu.Lock()
	if h.conn != nil {
		h.conn.Close()
	}
	h.mu.Unlock()
}

func (h *Handle) run() {
	backoff := time.Second

	for {
		select {
		case <-h.closed:
			return
		default:
		}

		h.mu.Lock()
		endpoint := h.endpoint
		h.mu.Unlock()

		conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
		if err != nil {
			log.Printf("transport: dial %s: %v (retrying in %s)", endpoint, err, backoff)
			select {
			case <-h.closed:
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		h.mu.Lock()
		h.conn = conn
		announced := h.announced
		h.mu.Unlock()

		if announced != "" {
			h.Publish(EventAnnouncePresence, announced)
		}

		done := make(chan struct{})
		go h.writePump(conn, done)
		h.readPump(conn)
		close(done)

		h.mu.Lock()
		h.conn = nil
		h.mu.Unlock()
		conn.Close()
	}
}

func (h *Handle) readPump(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("transport: read: %v", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		h.dispatch(ev)
	}
}

// dispatch delivers an event to every current subscriber, in
// subscription order, on the read goroutine. Arrival order is preserved.
func (h *Handle) dispatch(ev Event) {
	h.mu.Lock()
	subs := make([]subscription, len(h.subs[ev.Name]))
	copy(subs, h.subs[ev.Name])
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(ev.Data)
	}
}

func (h *Handle) writePump(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-h.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
