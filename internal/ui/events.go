package ui

import (
	"context"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/saurabh-saran/ChatUI/internal/api"
	"github.com/saurabh-saran/ChatUI/internal/chat"
	"github.com/saurabh-saran/ChatUI/internal/conversation"
	"github.com/saurabh-saran/ChatUI/internal/recorder"
)

// stateChangedMsg is pushed whenever the conversation or the roster
// changed underneath the view. Carries no payload; the view re-reads
// the collaborators.
type stateChangedMsg struct{}

type authDoneMsg struct {
	result api.AuthResult
	err    error
}

type usersLoadedMsg struct {
	entries []chat.RosterEntry
	err     error
}

type convOpenedMsg struct {
	conv *conversation.Conversation
	err  error
}

type uploadDoneMsg struct {
	err error
}

type voiceSentMsg struct {
	err error
}

type recordTickMsg time.Time

// notify hands a change notification from a collaborator goroutine to
// the update loop. Coalescing is fine: the view re-reads everything on
// each notification, so a dropped duplicate loses nothing.
func (m *Model) notify() {
	select {
	case m.events <- stateChangedMsg{}:
	default:
	}
}

// waitForEvent blocks on the bridge channel as a command, the usual way
// to feed externally produced state into the program.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m *Model) authenticate(username, password string, register bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var result api.AuthResult
		var err error
		if register {
			result, err = m.api.Register(ctx, username, password)
		} else {
			result, err = m.api.Login(ctx, username, password)
		}
		return authDoneMsg{result: result, err: err}
	}
}

// loadUsers fetches the roster, filtered by the search input when one
// is set. The query is captured here, on the update loop, before the
// command runs on its own goroutine.
func (m *Model) loadUsers() tea.Cmd {
	query := strings.TrimSpace(m.searchInput.Value())
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		entries, err := m.api.Users(ctx, query)
		return usersLoadedMsg{entries: entries, err: err}
	}
}

func (m *Model) openConversation(peer string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		conv, err := conversation.Open(ctx, m.handle, m.history, m.username, peer, m.notify)
		return convOpenedMsg{conv: conv, err: err}
	}
}

// sendAttachment reads a local file and runs it through the composer.
// The content type comes from the extension, falling back to sniffing
// the payload.
func (m *Model) sendAttachment(path string) tea.Cmd {
	composer := m.composer
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return uploadDoneMsg{err: err}
		}

		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}

		err = composer.SendFile(context.Background(), filepath.Base(path), contentType, data)
		return uploadDoneMsg{err: err}
	}
}

func (m *Model) sendVoiceNote(rec recorder.Recording) tea.Cmd {
	composer := m.composer
	return func() tea.Msg {
		err := composer.SendFile(context.Background(), rec.FileName, rec.ContentType, rec.Data)
		return voiceSentMsg{err: err}
	}
}

func recordTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return recordTickMsg(t)
	})
}
