package presence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/saurabh-saran/ChatUI/internal/chat"
	"github.com/saurabh-saran/ChatUI/internal/transport"
)

type fakeSub struct {
	handler  transport.Handler
	canceled bool
}

func (s *fakeSub) Subscribe(event string, fn transport.Handler) func() {
	s.handler = fn
	return func() { s.canceled = true }
}

func directory(names ...string) []chat.RosterEntry {
	entries := make([]chat.RosterEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, chat.RosterEntry{Username: n})
	}
	return entries
}

func find(t *testing.T, entries []chat.RosterEntry, name string) chat.RosterEntry {
	t.Helper()
	for _, e := range entries {
		if e.Username == name {
			return e
		}
	}
	t.Fatalf("entry %q not found", name)
	return chat.RosterEntry{}
}

func TestApplySnapshotRecomputesEveryEntry(t *testing.T) {
	tr := NewTracker(nil)
	tr.SetDirectory(directory("alice", "bob", "carol"))

	tr.ApplySnapshot([]string{"alice", "bob"})

	entries := tr.Entries()
	if !find(t, entries, "alice").Online || !find(t, entries, "bob").Online {
		t.Error("snapshot members not marked online")
	}
	if find(t, entries, "carol").Online {
		t.Error("absent user marked online")
	}

	// Next snapshot: alice left. Absence flips her offline; nothing is
	// removed from the roster.
	tr.ApplySnapshot([]string{"bob"})

	entries = tr.Entries()
	if find(t, entries, "alice").Online {
		t.Error("alice still online after leaving")
	}
	if !find(t, entries, "bob").Online {
		t.Error("bob lost online state")
	}
	if len(entries) != 3 {
		t.Errorf("roster shrank to %d entries", len(entries))
	}
}

func TestSnapshotMayIncludeUnknownUsers(t *testing.T) {
	tr := NewTracker(nil)
	tr.SetDirectory(directory("alice"))

	// Unknown names in a snapshot are ignored until the directory
	// learns about them.
	tr.ApplySnapshot([]string{"alice", "stranger"})

	entries := tr.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if !entries[0].Online {
		t.Error("alice not online")
	}
}

func TestBindFeedsSnapshotsFromChannel(t *testing.T) {
	sub := &fakeSub{}
	tr := NewTracker(nil)
	tr.SetDirectory(directory("alice", "bob"))

	cancel := tr.Bind(sub)
	if sub.handler == nil {
		t.Fatal("Bind did not subscribe")
	}

	data, _ := json.Marshal([]string{"bob"})
	sub.handler(data)

	if !find(t, tr.Entries(), "bob").Online {
		t.Error("snapshot from channel not applied")
	}

	cancel()
	if !sub.canceled {
		t.Error("cancel did not unsubscribe")
	}
}

func TestRecordMessageUpdatesPreviewAndOrder(t *testing.T) {
	tr := NewTracker(nil)
	tr.SetDirectory(directory("alice", "bob", "carol"))

	now := time.Now()
	tr.RecordMessage("carol", "see you", now.Add(-time.Minute))
	tr.RecordMessage("bob", "hello", now)

	entries := tr.Entries()
	if entries[0].Username != "bob" {
		t.Errorf("entries[0] = %s, want most recent first", entries[0].Username)
	}
	if entries[1].Username != "carol" {
		t.Errorf("entries[1] = %s", entries[1].Username)
	}
	if entries[0].LastMessagePreview != "hello" {
		t.Errorf("preview = %q", entries[0].LastMessagePreview)
	}

	// No activity sorts last, by name.
	if entries[2].Username != "alice" {
		t.Errorf("entries[2] = %s", entries[2].Username)
	}
}

func TestOnChangeFires(t *testing.T) {
	notified := 0
	tr := NewTracker(func() { notified++ })

	tr.SetDirectory(directory("alice"))
	tr.ApplySnapshot([]string{"alice"})
	tr.RecordMessage("alice", "hi", time.Now())
	tr.RecordMessage("unknown", "hi", time.Now()) // no entry, no notify

	if notified != 3 {
		t.Errorf("onChange fired %d times, want 3", notified)
	}
}
