package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoServer upgrades each connection and sends every received envelope
// straight back.
func echoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPublishRoundTrip(t *testing.T) {
	srv, endpoint := echoServer(t)
	defer srv.Close()

	h := NewHandle()
	defer h.Close()

	var mu sync.Mutex
	var got []string
	h.Subscribe(EventReceiveMessage, func(data json.RawMessage) {
		var body string
		json.Unmarshal(data, &body)
		mu.Lock()
		got = append(got, body)
		mu.Unlock()
	})

	h.Connect(endpoint)
	h.Publish(EventReceiveMessage, "hello")

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "hello" {
		t.Errorf("got %q, want %q", got[0], "hello")
	}
}

func TestSubscribeFanOutAndOrder(t *testing.T) {
	srv, endpoint := echoServer(t)
	defer srv.Close()

	h := NewHandle()
	defer h.Close()

	var mu sync.Mutex
	var first, second []string
	h.Subscribe(EventReceiveMessage, func(data json.RawMessage) {
		var body string
		json.Unmarshal(data, &body)
		mu.Lock()
		first = append(first, body)
		mu.Unlock()
	})
	h.Subscribe(EventReceiveMessage, func(data json.RawMessage) {
		var body string
		json.Unmarshal(data, &body)
		mu.Lock()
		second = append(second, body)
		mu.Unlock()
	})

	h.Connect(endpoint)
	h.Publish(EventReceiveMessage, "one")
	h.Publish(EventReceiveMessage, "two")

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(first) == 2 && len(second) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	for _, got := range [][]string{first, second} {
		if got[0] != "one" || got[1] != "two" {
			t.Errorf("events out of order: %v", got)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	srv, endpoint := echoServer(t)
	defer srv.Close()

	h := NewHandle()
	defer h.Close()

	var mu sync.Mutex
	kept := 0
	removed := 0
	cancel := h.Subscribe(EventReceiveMessage, func(json.RawMessage) {
		mu.Lock()
		removed++
		mu.Unlock()
	})
	h.Subscribe(EventReceiveMessage, func(json.RawMessage) {
		mu.Lock()
		kept++
		mu.Unlock()
	})

	cancel()

	h.Connect(endpoint)
	h.Publish(EventReceiveMessage, "x")

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return kept == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if removed != 0 {
		t.Errorf("canceled subscriber received %d events", removed)
	}
}

func TestSubscriberForOtherEventNotInvoked(t *testing.T) {
	srv, endpoint := echoServer(t)
	defer srv.Close()

	h := NewHandle()
	defer h.Close()

	var mu sync.Mutex
	var wrongEvent bool
	gotList := false
	h.Subscribe(EventReceiveMessage, func(json.RawMessage) {
		mu.Lock()
		wrongEvent = true
		mu.Unlock()
	})
	h.Subscribe(EventUpdateUserList, func(json.RawMessage) {
		mu.Lock()
		gotList = true
		mu.Unlock()
	})

	h.Connect(endpoint)
	h.Publish(EventUpdateUserList, []string{"alice"})

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotList
	})

	mu.Lock()
	defer mu.Unlock()
	if wrongEvent {
		t.Error("handler invoked for a different event name")
	}
}

func TestAnnouncePresencePublishesEnvelope(t *testing.T) {
	received := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		received <- ev
		conn.ReadMessage() // hold the connection open
	}))
	defer srv.Close()
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")

	h := NewHandle()
	defer h.Close()

	h.Connect(endpoint)
	h.AnnouncePresence("alice")

	select {
	case ev := <-received:
		if ev.Name != EventAnnouncePresence {
			t.Errorf("event = %q, want %q", ev.Name, EventAnnouncePresence)
		}
		var username string
		json.Unmarshal(ev.Data, &username)
		if username != "alice" {
			t.Errorf("payload = %q, want %q", username, "alice")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("announce not received")
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	srv, endpoint := echoServer(t)
	defer srv.Close()

	h := NewHandle()
	defer h.Close()

	h.Connect(endpoint)
	h.Connect(endpoint)
	h.Connect(endpoint)

	var mu sync.Mutex
	count := 0
	h.Subscribe(EventReceiveMessage, func(json.RawMessage) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	h.Publish(EventReceiveMessage, "once")

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	})

	// A single echo connection means a single delivery.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("delivered %d times, want 1", count)
	}
}
