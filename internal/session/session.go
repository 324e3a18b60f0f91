// Package session persists the authenticated identity across client
// restarts. This file is the only client-side state that outlives the
// process; explicit logout clears it.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Session is the locally persisted identity.
type Session struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Store reads and writes the session file.
type Store struct {
	path string
}

// DefaultStore keeps the session under the user config directory.
func DefaultStore() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStore(filepath.Join(dir, "chatui", "session.json")), nil
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the saved session, or nil when none exists.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	if sess.Username == "" || sess.Token == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s *Store) Save(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Clear removes the session file. Missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
