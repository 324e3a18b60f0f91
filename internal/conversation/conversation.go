// Package conversation holds the per-screen view state of a two-party
// thread and the merge engine that keeps it consistent with the event
// channel.
package conversation

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/saurabh-saran/ChatUI/internal/chat"
	"github.com/saurabh-saran/ChatUI/internal/transport"
)

// Subscriber is the slice of the transport handle this package needs.
type Subscriber interface {
	Subscribe(event string, fn transport.Handler) func()
}

// Loader fetches the ordered history for a thread.
type Loader interface {
	Load(ctx context.Context, localUser, peer string) ([]chat.Message, error)
}

// Conversation is the ephemeral state of one open chat screen. It is
// created when the screen opens and closed when it closes; reopening
// refetches history.
type Conversation struct {
	mu        sync.Mutex
	localUser string
	peer      string
	messages  []chat.Message
	seen      map[chat.Key]struct{}
	closed    bool

	// events arriving while the history load is still in flight are
	// held back so the seed keeps its position at the front
	seeding bool
	pending []chat.Message

	onChange func()
	cancel   func()
}

// Open subscribes to the channel and then loads the thread history, so
// an event dispatched while the load is in flight is never missed; it
// is buffered and merged once the seed is in place, with the dedup key
// absorbing any overlap. On a history failure the conversation is still
// returned, subscribed and empty, along with the error for the caller
// to surface; there is no automatic retry.
func Open(ctx context.Context, sub Subscriber, loader Loader, localUser, peer string, onChange func()) (*Conversation, error) {
	c := &Conversation{
		localUser: localUser,
		peer:      peer,
		seen:      make(map[chat.Key]struct{}),
		onChange:  onChange,
		seeding:   true,
	}
	c.cancel = sub.Subscribe(transport.EventReceiveMessage, c.handleInbound)

	history, err := loader.Load(ctx, localUser, peer)
	c.mu.Lock()
	for _, m := range history {
		if _, dup := c.seen[m.Key()]; dup {
			continue
		}
		c.messages = append(c.messages, m)
		c.seen[m.Key()] = struct{}{}
	}
	c.seeding = false
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, m := range pending {
		c.Merge(m)
	}
	return c, err
}

func (c *Conversation) handleInbound(data json.RawMessage) {
	var m chat.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return
	}

	c.mu.Lock()
	if c.seeding {
		c.pending = append(c.pending, m)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.Merge(m)
}

// Merge runs the filter and dedup steps and appends the message in
// arrival order. It is the single path for both inbound channel events
// (peer messages and echoes of our own sends) and optimistic local
// appends, so the loopback echo of a sent message is absorbed by the
// dedup key rather than special-cased.
func (c *Conversation) Merge(m chat.Message) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if !m.InThread(c.localUser, c.peer) {
		c.mu.Unlock()
		return
	}
	key := m.Key()
	if _, dup := c.seen[key]; dup {
		c.mu.Unlock()
		return
	}
	c.messages = append(c.messages, m)
	c.seen[key] = struct{}{}
	notify := c.onChange
	c.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Messages returns the thread in insertion order.
func (c *Conversation) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Peer() string { return c.peer }

func (c *Conversation) LocalUser() string { return c.localUser }

// Closed reports whether the screen owning this conversation has been
// torn down. In-flight work checks this before mutating any UI state.
func (c *Conversation) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close unsubscribes immediately. Results of work still in flight for
// this screen are discarded by Merge.
func (c *Conversation) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
