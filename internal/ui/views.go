package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/saurabh-saran/ChatUI/internal/chat"
)

func (m *Model) View() string {
	switch m.screen {
	case screenAuth:
		return m.authView()
	case screenRoster:
		return m.rosterView()
	case screenChat:
		return m.chatView()
	}
	return ""
}

func (m *Model) authView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(banner) + "\n\n")

	if m.register {
		s.WriteString("Login / → Register\n\n")
	} else {
		s.WriteString("→ Login / Register\n\n")
	}

	s.WriteString("Username: " + m.usernameInput.View() + "\n")
	s.WriteString("Password: " + m.passwordInput.View() + "\n\n")

	if m.notice != "" {
		s.WriteString(errorStyle.Render(m.notice) + "\n")
	}
	if m.loading {
		s.WriteString(mutedStyle.Render("Signing in..."))
	} else {
		s.WriteString(mutedStyle.Render("Enter to Submit • Tab to Switch Field • Ctrl+R Toggle Mode"))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(s.String()))
}

func (m *Model) rosterView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(m.username) + "\n\n")

	if m.searching {
		s.WriteString("Search: " + m.searchInput.View() + "\n\n")
	} else if q := strings.TrimSpace(m.searchInput.Value()); q != "" {
		s.WriteString(mutedStyle.Render("Filter: "+q+"  (Esc to clear)") + "\n\n")
	}

	if len(m.roster) == 0 {
		s.WriteString(mutedStyle.Render("No contacts yet.\n'r' to refresh."))
	} else {
		for i, entry := range m.roster {
			dot := mutedStyle.Render("○")
			if entry.Online {
				dot = onlineStyle.Render("●")
			}

			preview := ""
			if entry.LastMessagePreview != "" {
				preview = mutedStyle.Render("  " + truncate(entry.LastMessagePreview, 40))
			}

			line := fmt.Sprintf("%s %s%s", dot, entry.Username, preview)
			if i == m.selected {
				s.WriteString(selectedItemStyle.Render(line) + "\n")
			} else {
				s.WriteString(unselectedItemStyle.Render(line) + "\n")
			}
		}
	}

	s.WriteString("\n")
	if m.notice != "" {
		s.WriteString(errorStyle.Render(m.notice) + "\n")
	}
	if m.searching {
		s.WriteString(mutedStyle.Render("Enter Apply • Esc Cancel"))
	} else {
		s.WriteString(mutedStyle.Render("↑/↓ Navigate • Enter Open • / Search • r Refresh • L Logout • q Quit"))
	}

	return boxStyle.Render(s.String())
}

func (m *Model) chatView() string {
	peer := ""
	online := false
	if m.conv != nil {
		peer = m.conv.Peer()
		for _, entry := range m.roster {
			if entry.Username == peer {
				online = entry.Online
				break
			}
		}
	}

	headerText := "💬 " + peer
	if online {
		headerText += " " + onlineStyle.Render("● online")
	} else {
		headerText += " " + mutedStyle.Render("○ offline")
	}
	header := headerStyle.Width(m.chatViewport.Width).Render(headerText)

	var footerContent string
	switch {
	case m.recorder.Active():
		footerContent = recordingStyle.Render(fmt.Sprintf("● REC %s", formatElapsed(m.recorder.Elapsed()))) +
			mutedStyle.Render("  Ctrl+R to stop and send")
	case m.composer != nil && m.composer.Uploading():
		footerContent = mutedStyle.Render("Uploading...")
	case m.attaching:
		footerContent = "Attach: " + m.attachInput.View()
	default:
		footerContent = m.messageInput.View()
	}
	if m.notice != "" {
		footerContent = errorStyle.Render(m.notice) + "\n" + footerContent
	}
	footer := footerStyle.Width(m.chatViewport.Width).Render(footerContent)

	help := mutedStyle.Render("Enter Send • Ctrl+O Attach • Ctrl+R Voice • Esc Back")

	return chatWindowStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		m.chatViewport.View(),
		footer,
		help,
	))
}

func (m *Model) refreshChatViewport() {
	if m.conv == nil {
		return
	}
	m.chatViewport.SetContent(m.renderChat())
	m.chatViewport.GotoBottom()
}

func (m *Model) renderChat() string {
	var content strings.Builder
	for _, msg := range m.conv.Messages() {
		style := otherMessageStyle
		if msg.Sender == m.username {
			style = ownMessageStyle
		}

		body := msg.Body
		if msg.Kind != chat.KindText && msg.AttachmentURL != "" {
			body += mutedStyle.Render("  [" + msg.AttachmentURL + "]")
		}

		line := fmt.Sprintf("%s %s: %s",
			mutedStyle.Render(formatRelativeTime(msg.SentAt)),
			style.Render(msg.Sender),
			body,
		)
		content.WriteString(line + "\n")
	}
	return content.String()
}

func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "Yesterday " + t.Format("15:04")
	default:
		return t.Format("Jan 2 15:04")
	}
}

func formatElapsed(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
