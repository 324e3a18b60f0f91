package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/saurabh-saran/ChatUI/internal/chat"
	"github.com/saurabh-saran/ChatUI/internal/transport"
	"github.com/saurabh-saran/ChatUI/pkg/errs"
)

// fakeSub records subscriptions and lets tests push events by hand.
type fakeSub struct {
	handlers map[string]transport.Handler
	canceled bool
}

func newFakeSub() *fakeSub {
	return &fakeSub{handlers: make(map[string]transport.Handler)}
}

func (s *fakeSub) Subscribe(event string, fn transport.Handler) func() {
	s.handlers[event] = fn
	return func() { s.canceled = true }
}

func (s *fakeSub) push(t *testing.T, event string, msg chat.Message) {
	t.Helper()
	fn, ok := s.handlers[event]
	if !ok {
		t.Fatalf("no handler subscribed for %s", event)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	fn(data)
}

type fakeLoader struct {
	messages []chat.Message
	err      error
}

func (l *fakeLoader) Load(ctx context.Context, localUser, peer string) ([]chat.Message, error) {
	return l.messages, l.err
}

func msgAt(sender, recipient, body string, at time.Time) chat.Message {
	return chat.Message{Sender: sender, Recipient: recipient, Body: body, Kind: chat.KindText, SentAt: at}
}

func TestOpenSeedsHistoryInOrder(t *testing.T) {
	base := time.Now()
	loader := &fakeLoader{messages: []chat.Message{
		msgAt("alice", "bob", "first", base),
		msgAt("bob", "alice", "second", base.Add(time.Second)),
	}}

	conv, err := Open(context.Background(), newFakeSub(), loader, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	got := conv.Messages()
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Body != "first" || got[1].Body != "second" {
		t.Errorf("messages out of order: %q, %q", got[0].Body, got[1].Body)
	}
}

func TestOpenHistoryFailureStillSubscribes(t *testing.T) {
	sub := newFakeSub()
	loader := &fakeLoader{err: errs.ErrHistoryUnavailable}

	conv, err := Open(context.Background(), sub, loader, "alice", "bob", nil)
	if !errors.Is(err, errs.ErrHistoryUnavailable) {
		t.Fatalf("Open() error = %v, want ErrHistoryUnavailable", err)
	}
	if conv == nil {
		t.Fatal("Open() returned nil conversation on history failure")
	}
	if len(conv.Messages()) != 0 {
		t.Error("expected empty thread after failed history load")
	}

	// Live messages still arrive on the failed screen.
	sub.push(t, transport.EventReceiveMessage, msgAt("bob", "alice", "hi", time.Now()))
	if len(conv.Messages()) != 1 {
		t.Error("live message not merged after history failure")
	}
}

func TestMergeDeduplicatesEcho(t *testing.T) {
	conv, err := Open(context.Background(), newFakeSub(), &fakeLoader{}, "alice", "bob", nil)
	if err != nil {
		t.Fatal(err)
	}

	sent := msgAt("alice", "bob", "hello", time.Now())
	sent.ClientID = "local"

	// Optimistic local append, then the channel echo of the same send.
	conv.Merge(sent)
	echo := sent
	echo.ClientID = ""
	conv.Merge(echo)

	if got := len(conv.Messages()); got != 1 {
		t.Errorf("got %d messages after echo, want 1", got)
	}
}

func TestMergeFiltersForeignThreads(t *testing.T) {
	sub := newFakeSub()
	conv, err := Open(context.Background(), sub, &fakeLoader{}, "alice", "bob", nil)
	if err != nil {
		t.Fatal(err)
	}

	sub.push(t, transport.EventReceiveMessage, msgAt("carol", "alice", "wrong thread", time.Now()))
	sub.push(t, transport.EventReceiveMessage, msgAt("bob", "alice", "right thread", time.Now()))

	got := conv.Messages()
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	if got[0].Body != "right thread" {
		t.Errorf("kept %q, want the in-thread message", got[0].Body)
	}
}

func TestMergeNotifiesOnChange(t *testing.T) {
	notified := 0
	conv, err := Open(context.Background(), newFakeSub(), &fakeLoader{}, "alice", "bob", func() { notified++ })
	if err != nil {
		t.Fatal(err)
	}

	m := msgAt("bob", "alice", "hi", time.Now())
	conv.Merge(m)
	conv.Merge(m) // duplicate, no notification

	if notified != 1 {
		t.Errorf("onChange fired %d times, want 1", notified)
	}
}

func TestCloseUnsubscribesAndDropsLateMerges(t *testing.T) {
	sub := newFakeSub()
	conv, err := Open(context.Background(), sub, &fakeLoader{}, "alice", "bob", nil)
	if err != nil {
		t.Fatal(err)
	}

	conv.Close()

	if !sub.canceled {
		t.Error("Close() did not unsubscribe")
	}
	if !conv.Closed() {
		t.Error("Closed() = false after Close()")
	}

	conv.Merge(msgAt("bob", "alice", "late", time.Now()))
	if len(conv.Messages()) != 0 {
		t.Error("message merged into closed conversation")
	}

	// Second close is a no-op.
	conv.Close()
}

// End to end: history seed, an optimistic send, its echo, and a peer
// reply all land as three messages in order.
func TestThreadLifecycle(t *testing.T) {
	base := time.Now()
	sub := newFakeSub()
	loader := &fakeLoader{messages: []chat.Message{
		msgAt("bob", "alice", "earlier", base.Add(-time.Minute)),
	}}

	conv, err := Open(context.Background(), sub, loader, "alice", "bob", nil)
	if err != nil {
		t.Fatal(err)
	}

	sent := msgAt("alice", "bob", "hey", base)
	conv.Merge(sent)                                // optimistic append
	sub.push(t, transport.EventReceiveMessage, sent) // server echo
	sub.push(t, transport.EventReceiveMessage, msgAt("bob", "alice", "reply", base.Add(time.Second)))

	got := conv.Messages()
	want := []string{"earlier", "hey", "reply"}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i, body := range want {
		if got[i].Body != body {
			t.Errorf("messages[%d] = %q, want %q", i, got[i].Body, body)
		}
	}
}

// midLoadLoader dispatches a live event through the subscription while
// the history request is still in flight.
type midLoadLoader struct {
	sub      *fakeSub
	messages []chat.Message
	live     []chat.Message
}

func (l *midLoadLoader) Load(ctx context.Context, localUser, peer string) ([]chat.Message, error) {
	for _, m := range l.live {
		fn, ok := l.sub.handlers[transport.EventReceiveMessage]
		if !ok {
			return nil, errors.New("no handler registered at dispatch time")
		}
		data, _ := json.Marshal(m)
		fn(data)
	}
	return l.messages, nil
}

func TestOpenKeepsEventsArrivingDuringHistoryLoad(t *testing.T) {
	base := time.Now()
	sub := newFakeSub()
	overlap := msgAt("bob", "alice", "second", base.Add(time.Second))
	loader := &midLoadLoader{
		sub: sub,
		messages: []chat.Message{
			msgAt("alice", "bob", "first", base),
			overlap,
		},
		live: []chat.Message{
			overlap,
			msgAt("bob", "alice", "raced", base.Add(2*time.Second)),
		},
	}

	conv, err := Open(context.Background(), sub, loader, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	got := conv.Messages()
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3 (history plus the raced event, overlap absorbed)", len(got))
	}
	if got[0].Body != "first" || got[1].Body != "second" || got[2].Body != "raced" {
		t.Errorf("order: %q, %q, %q", got[0].Body, got[1].Body, got[2].Body)
	}
}
