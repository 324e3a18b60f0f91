// Package presence reflects server-pushed online state onto the roster.
package presence

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/saurabh-saran/ChatUI/internal/chat"
	"github.com/saurabh-saran/ChatUI/internal/transport"
)

// Subscriber is the slice of the transport handle this package needs.
type Subscriber interface {
	Subscribe(event string, fn transport.Handler) func()
}

// Tracker owns the roster and recomputes every entry's online flag from
// each presence snapshot. Snapshots are full replacements, applied in
// arrival order; the channel is assumed to deliver them in order.
type Tracker struct {
	mu       sync.Mutex
	entries  map[string]*chat.RosterEntry
	order    []string
	onChange func()
}

func NewTracker(onChange func()) *Tracker {
	return &Tracker{
		entries:  make(map[string]*chat.RosterEntry),
		onChange: onChange,
	}
}

// Bind subscribes the tracker to presence snapshots on the channel. The
// returned function unsubscribes.
func (t *Tracker) Bind(sub Subscriber) func() {
	return sub.Subscribe(transport.EventUpdateUserList, func(data json.RawMessage) {
		var online []string
		if err := json.Unmarshal(data, &online); err != nil {
			return
		}
		t.ApplySnapshot(online)
	})
}

// SetDirectory replaces the set of known contacts from the user
// directory. Online flags carried on the entries are kept until the
// next snapshot.
func (t *Tracker) SetDirectory(users []chat.RosterEntry) {
	t.mu.Lock()
	t.entries = make(map[string]*chat.RosterEntry, len(users))
	t.order = t.order[:0]
	for i := range users {
		u := users[i]
		t.entries[u.Username] = &u
		t.order = append(t.order, u.Username)
	}
	notify := t.onChange
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// ApplySnapshot marks every roster entry online iff it appears in the
// snapshot. Entries are never removed here; that is the directory's
// job.
func (t *Tracker) ApplySnapshot(online []string) {
	member := make(map[string]bool, len(online))
	for _, u := range online {
		member[u] = true
	}

	t.mu.Lock()
	for name, e := range t.entries {
		e.Online = member[name]
	}
	notify := t.onChange
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// RecordMessage updates the preview fields shown next to a contact.
func (t *Tracker) RecordMessage(username, preview string, at time.Time) {
	t.mu.Lock()
	e, ok := t.entries[username]
	if ok {
		e.LastMessagePreview = preview
		e.LastMessageAt = at
	}
	notify := t.onChange
	t.mu.Unlock()

	if ok && notify != nil {
		notify()
	}
}

// Entries returns the roster sorted by most recent activity, then name.
func (t *Tracker) Entries() []chat.RosterEntry {
	t.mu.Lock()
	out := make([]chat.RosterEntry, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.entries[name])
	}
	t.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].Username < out[j].Username
	})
	return out
}
