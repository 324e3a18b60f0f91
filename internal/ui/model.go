// Package ui is the terminal front end. It owns no conversation state
// of its own: screens read the conversation, composer and presence
// collaborators and re-render when they report a change.
package ui

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/saurabh-saran/ChatUI/internal/api"
	"github.com/saurabh-saran/ChatUI/internal/chat"
	"github.com/saurabh-saran/ChatUI/internal/composer"
	"github.com/saurabh-saran/ChatUI/internal/conversation"
	"github.com/saurabh-saran/ChatUI/internal/history"
	"github.com/saurabh-saran/ChatUI/internal/media"
	"github.com/saurabh-saran/ChatUI/internal/presence"
	"github.com/saurabh-saran/ChatUI/internal/recorder"
	"github.com/saurabh-saran/ChatUI/internal/session"
	"github.com/saurabh-saran/ChatUI/internal/transport"
	"github.com/saurabh-saran/ChatUI/pkg/errs"
)

type screen int

const (
	screenAuth screen = iota
	screenRoster
	screenChat
)

// Model is the bubbletea program state for the whole client.
type Model struct {
	serverURL string
	maxUpload int64

	api      *api.Client
	sessions *session.Store
	handle   *transport.Handle
	recorder *recorder.Recorder

	// set after authentication
	username string
	history  *history.Loader
	media    *media.Uploader
	tracker  *presence.Tracker

	// set while a chat screen is open
	conv     *conversation.Conversation
	composer *composer.Composer

	unsubPresence func()
	unsubInbound  func()

	// bridge from collaborator goroutines into the update loop
	events chan tea.Msg
	resume *session.Session

	screen   screen
	width    int
	height   int
	notice   string
	loading  bool
	register bool

	usernameInput textinput.Model
	passwordInput textinput.Model
	authFocused   int

	roster      []chat.RosterEntry
	selected    int
	searching   bool
	searchInput textinput.Model

	messageInput textinput.Model
	attachInput  textinput.Model
	attaching    bool
	chatViewport viewport.Model
}

// New wires the client screens to their collaborators. A saved session,
// if present, skips the auth screen.
func New(serverURL string, maxUpload int64, apiClient *api.Client, sessions *session.Store, handle *transport.Handle, rec *recorder.Recorder) *Model {
	usernameInput := textinput.New()
	usernameInput.Placeholder = "Username"
	usernameInput.CharLimit = 32
	usernameInput.Width = 30
	usernameInput.Focus()

	passwordInput := textinput.New()
	passwordInput.Placeholder = "Password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.CharLimit = 64
	passwordInput.Width = 30

	messageInput := textinput.New()
	messageInput.Placeholder = "Type a message..."
	messageInput.CharLimit = 1000
	messageInput.Width = 50

	attachInput := textinput.New()
	attachInput.Placeholder = "Path to file..."
	attachInput.CharLimit = 256
	attachInput.Width = 50

	searchInput := textinput.New()
	searchInput.Placeholder = "Search users..."
	searchInput.CharLimit = 32
	searchInput.Width = 30

	m := &Model{
		serverURL:     serverURL,
		maxUpload:     maxUpload,
		api:           apiClient,
		sessions:      sessions,
		handle:        handle,
		recorder:      rec,
		events:        make(chan tea.Msg, 64),
		usernameInput: usernameInput,
		passwordInput: passwordInput,
		messageInput:  messageInput,
		attachInput:   attachInput,
		searchInput:   searchInput,
		chatViewport:  viewport.New(80, 20),
	}

	if sess, err := sessions.Load(); err == nil && sess != nil {
		m.resume = sess
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.waitForEvent()}
	if m.resume != nil {
		resumed := api.AuthResult{Token: m.resume.Token, Username: m.resume.Username}
		m.loading = true
		cmds = append(cmds, func() tea.Msg {
			return authDoneMsg{result: resumed}
		})
	}
	return tea.Batch(cmds...)
}

// afterAuth builds the authenticated collaborators and joins the event
// channel.
func (m *Model) afterAuth(result api.AuthResult) tea.Cmd {
	m.username = result.Username
	m.api.Token = result.Token
	m.history = history.NewLoader(m.serverURL, result.Token)
	m.media = media.NewUploader(m.serverURL, result.Token)
	m.tracker = presence.NewTracker(m.notify)

	m.handle.Connect(channelEndpoint(m.serverURL, result.Token))
	m.handle.AnnouncePresence(result.Username)

	// Re-authentication after a stale-session fallback must not stack
	// handlers on top of the previous session's.
	if m.unsubPresence != nil {
		m.unsubPresence()
	}
	if m.unsubInbound != nil {
		m.unsubInbound()
	}
	m.unsubPresence = m.tracker.Bind(m.handle)
	m.unsubInbound = m.handle.Subscribe(transport.EventReceiveMessage, m.recordRosterPreview)

	m.sessions.Save(session.Session{Username: result.Username, Token: result.Token})

	m.screen = screenRoster
	m.notice = ""
	return m.loadUsers()
}

// recordRosterPreview keeps the roster's last-message column fresh for
// threads that are not currently open.
func (m *Model) recordRosterPreview(data json.RawMessage) {
	var msg chat.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	peer := msg.Sender
	if peer == m.username {
		peer = msg.Recipient
	}
	m.tracker.RecordMessage(peer, msg.Body, msg.SentAt)
	m.notify()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.teardown()
			return m, tea.Quit
		}
		switch m.screen {
		case screenAuth:
			return m.updateAuth(msg)
		case screenRoster:
			return m.updateRoster(msg)
		case screenChat:
			return m.updateChat(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chatViewport = viewport.New(msg.Width-4, msg.Height-8)
		m.messageInput.Width = msg.Width - 8
		m.attachInput.Width = msg.Width - 8
		m.refreshChatViewport()

	case stateChangedMsg:
		if m.tracker != nil {
			m.roster = m.tracker.Entries()
			if m.selected >= len(m.roster) {
				m.selected = 0
			}
		}
		m.refreshChatViewport()
		cmds = append(cmds, m.waitForEvent())

	case authDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.notice = msg.err.Error()
			m.resume = nil
			m.sessions.Clear()
			m.screen = screenAuth
			return m, nil
		}
		cmds = append(cmds, m.afterAuth(msg.result))

	case usersLoadedMsg:
		if msg.err != nil {
			if m.resume != nil {
				// Stale saved token; fall back to the auth screen.
				m.resume = nil
				m.sessions.Clear()
				m.screen = screenAuth
				m.notice = "Session expired, please sign in again"
				return m, nil
			}
			m.notice = msg.err.Error()
			return m, nil
		}
		m.resume = nil
		m.tracker.SetDirectory(msg.entries)
		m.roster = m.tracker.Entries()
		if m.selected >= len(m.roster) {
			m.selected = 0
		}

	case convOpenedMsg:
		m.loading = false
		m.conv = msg.conv
		m.composer = composer.New(m.handle, m.media, msg.conv, m.username, msg.conv.Peer(), m.maxUpload)
		m.screen = screenChat
		m.messageInput.SetValue("")
		m.messageInput.Focus()
		if msg.err != nil {
			m.notice = errs.Notice(msg.err)
		}
		m.refreshChatViewport()

	case uploadDoneMsg:
		m.notice = errs.Notice(msg.err)
		m.refreshChatViewport()

	case voiceSentMsg:
		m.notice = errs.Notice(msg.err)
		m.refreshChatViewport()

	case recordTickMsg:
		if m.recorder != nil && m.recorder.Active() {
			cmds = append(cmds, recordTick())
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.usernameInput.Blur()
		m.passwordInput.Blur()
		m.authFocused = (m.authFocused + 1) % 2
		if m.authFocused == 0 {
			m.usernameInput.Focus()
		} else {
			m.passwordInput.Focus()
		}
		return m, nil
	case "ctrl+r":
		m.register = !m.register
		return m, nil
	case "enter":
		if m.loading || m.usernameInput.Value() == "" || m.passwordInput.Value() == "" {
			return m, nil
		}
		m.loading = true
		m.notice = ""
		return m, m.authenticate(m.usernameInput.Value(), m.passwordInput.Value(), m.register)
	}

	var cmd tea.Cmd
	if m.authFocused == 0 {
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) updateRoster(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.searchInput.SetValue("")
			m.searchInput.Blur()
			return m, m.loadUsers()
		case "enter":
			m.searching = false
			m.searchInput.Blur()
			return m, m.loadUsers()
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.teardown()
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.roster)-1 {
			m.selected++
		}
	case "/":
		m.searching = true
		m.searchInput.Focus()
		return m, nil
	case "esc":
		if strings.TrimSpace(m.searchInput.Value()) != "" {
			m.searchInput.SetValue("")
			return m, m.loadUsers()
		}
	case "r":
		return m, m.loadUsers()
	case "L":
		m.sessions.Clear()
		m.teardown()
		return m, tea.Quit
	case "enter", "l", "right":
		if len(m.roster) == 0 || m.loading {
			return m, nil
		}
		m.loading = true
		m.notice = ""
		return m, m.openConversation(m.roster[m.selected].Username)
	}
	return m, nil
}

func (m *Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.attaching {
		switch msg.String() {
		case "esc":
			m.attaching = false
			m.attachInput.Blur()
			m.messageInput.Focus()
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.attachInput.Value())
			if path == "" || m.composer.Uploading() {
				return m, nil
			}
			m.attaching = false
			m.attachInput.SetValue("")
			m.attachInput.Blur()
			m.messageInput.Focus()
			return m, m.sendAttachment(path)
		}
		var cmd tea.Cmd
		m.attachInput, cmd = m.attachInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc":
		m.closeConversation()
		m.screen = screenRoster
		m.notice = ""
		return m, m.loadUsers()
	case "enter":
		if m.composer.Uploading() {
			return m, nil
		}
		if !m.composer.SendText(m.messageInput.Value()) {
			return m, nil
		}
		m.notice = ""
		m.messageInput.SetValue("")
		m.refreshChatViewport()
		return m, nil
	case "ctrl+o":
		if m.composer.Uploading() || m.recorder.Active() {
			return m, nil
		}
		m.attaching = true
		m.messageInput.Blur()
		m.attachInput.Focus()
		return m, nil
	case "ctrl+r":
		return m.toggleRecording()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.messageInput, cmd = m.messageInput.Update(msg)
	cmds = append(cmds, cmd)
	m.chatViewport, cmd = m.chatViewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// toggleRecording starts a voice capture, or stops the active one and
// sends the result through the attachment path.
func (m *Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.composer.Uploading() {
		return m, nil
	}
	if m.recorder.Active() {
		rec, ok := m.recorder.Stop()
		if !ok {
			return m, nil
		}
		return m, m.sendVoiceNote(rec)
	}
	if err := m.recorder.Start(context.Background()); err != nil {
		m.notice = errs.Notice(err)
		return m, nil
	}
	m.notice = ""
	return m, recordTick()
}

func (m *Model) closeConversation() {
	if m.conv != nil {
		m.conv.Close()
		m.conv = nil
		m.composer = nil
	}
	if m.recorder.Active() {
		m.recorder.Stop()
	}
}

func (m *Model) teardown() {
	m.closeConversation()
	if m.unsubPresence != nil {
		m.unsubPresence()
	}
	if m.unsubInbound != nil {
		m.unsubInbound()
	}
	m.handle.Close()
}

// channelEndpoint derives the event channel URL from the HTTP base URL.
func channelEndpoint(baseURL, token string) string {
	e := baseURL
	switch {
	case strings.HasPrefix(e, "https://"):
		e = "wss://" + strings.TrimPrefix(e, "https://")
	case strings.HasPrefix(e, "http://"):
		e = "ws://" + strings.TrimPrefix(e, "http://")
	}
	return strings.TrimSuffix(e, "/") + "/ws?token=" + url.QueryEscape(token)
}
