package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/saurabh-saran/ChatUI/internal/api"
	"github.com/saurabh-saran/ChatUI/internal/recorder"
	"github.com/saurabh-saran/ChatUI/internal/session"
	"github.com/saurabh-saran/ChatUI/internal/transport"
	"github.com/saurabh-saran/ChatUI/internal/ui"
	"github.com/saurabh-saran/ChatUI/pkg/config"
)

func main() {
	cfg := config.Load()

	// The terminal owns stdout; keep log output out of the way.
	logFile, err := os.OpenFile("chatui.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	var sessions *session.Store
	if cfg.SessionPath != "" {
		sessions = session.NewStore(cfg.SessionPath)
	} else {
		sessions, err = session.DefaultStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	apiClient := api.NewClient(cfg.ServerURL)
	handle := transport.NewHandle()
	rec := recorder.New(recorder.NewMicSource())

	model := ui.New(cfg.ServerURL, cfg.MaxUploadSize, apiClient, sessions, handle, rec)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
