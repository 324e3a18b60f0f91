package server

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saurabh-saran/ChatUI/internal/chat"
)

// MessageHandler serves conversation history.
type MessageHandler struct {
	db *sql.DB
}

func NewMessageHandler(db *sql.DB) *MessageHandler {
	return &MessageHandler{db: db}
}

// GetMessages returns the full history between two users, oldest first.
// The authenticated user must be one of the two parties.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": __("unauthorized")})
		return
	}

	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("from and to are required")})
		return
	}
	if username != from && username != to {
		c.JSON(http.StatusForbidden, gin.H{"error": __("not a participant of this conversation")})
		return
	}

	rows, err := h.db.Query(`
		SELECT sender, recipient, body, kind, attachment_url, attachment_name, client_id, sent_at
		FROM messages
		WHERE (sender = ? AND recipient = ?) OR (sender = ? AND recipient = ?)
		ORDER BY sent_at ASC
	`, from, to, to, from)
	if err != nil {
		log.Printf("Failed to load messages: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": __("failed to load messages")})
		return
	}
	defer rows.Close()

	messages := make([]chat.Message, 0)
	for rows.Next() {
		var msg chat.Message
		var kind string
		if err := rows.Scan(&msg.Sender, &msg.Recipient, &msg.Body, &kind,
			&msg.AttachmentURL, &msg.AttachmentName, &msg.ClientID, &msg.SentAt); err != nil {
			log.Printf("Failed to scan message: %v", err)
			continue
		}
		msg.Kind = chat.Kind(kind)
		messages = append(messages, msg)
	}

	c.JSON(http.StatusOK, messages)
}

// UserHandler serves the contact roster.
type UserHandler struct {
	db  *sql.DB
	hub *Hub
}

func NewUserHandler(db *sql.DB, hub *Hub) *UserHandler {
	return &UserHandler{db: db, hub: hub}
}

// GetUsers lists every registered user except the caller, with online
// state and the latest message exchanged with the caller, if any.
func (h *UserHandler) GetUsers(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": __("unauthorized")})
		return
	}

	query := c.Query("q")
	var rows *sql.Rows
	var err error
	if query != "" {
		rows, err = h.db.Query(`
			SELECT username FROM users
			WHERE username != ? AND username LIKE ?
			ORDER BY username ASC
		`, username, "%"+query+"%")
	} else {
		rows, err = h.db.Query(`
			SELECT username FROM users WHERE username != ? ORDER BY username ASC
		`, username)
	}
	if err != nil {
		log.Printf("Failed to load users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": __("failed to load users")})
		return
	}
	defer rows.Close()

	entries := make([]chat.RosterEntry, 0)
	for rows.Next() {
		var entry chat.RosterEntry
		if err := rows.Scan(&entry.Username); err != nil {
			continue
		}
		entry.Online = h.hub.IsUserOnline(entry.Username)
		entries = append(entries, entry)
	}

	for i := range entries {
		preview, at, err := h.lastMessage(username, entries[i].Username)
		if err != nil {
			continue
		}
		entries[i].LastMessagePreview = preview
		entries[i].LastMessageAt = at
	}

	c.JSON(http.StatusOK, entries)
}

func (h *UserHandler) lastMessage(a, b string) (string, time.Time, error) {
	var body string
	var at time.Time
	err := h.db.QueryRow(`
		SELECT body, sent_at FROM messages
		WHERE (sender = ? AND recipient = ?) OR (sender = ? AND recipient = ?)
		ORDER BY sent_at DESC LIMIT 1
	`, a, b, b, a).Scan(&body, &at)
	if err != nil {
		return "", time.Time{}, err
	}
	return body, at, nil
}

// FileHandler stores uploaded attachments on disk.
type FileHandler struct {
	storagePath string
	maxBytes    int64
}

func NewFileHandler(storagePath string, maxBytes int64) *FileHandler {
	return &FileHandler{storagePath: storagePath, maxBytes: maxBytes}
}

// UploadFile accepts a multipart attachment and returns the URL it will
// be served from. The type check mirrors the one the client performs
// before uploading; the server is the authoritative line.
func (h *FileHandler) UploadFile(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": __("unauthorized")})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": __("no file provided")})
		return
	}

	if file.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": __("file is too large")})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if _, ok := chat.KindForContentType(contentType); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": __("unsupported file type")})
		return
	}

	if err := os.MkdirAll(h.storagePath, 0o755); err != nil {
		log.Printf("Failed to create storage dir: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": __("failed to save file")})
		return
	}

	name := uuid.New().String() + filepath.Ext(file.Filename)
	dst := filepath.Join(h.storagePath, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		log.Printf("Failed to save file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": __("failed to save file")})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "fileUrl": "/api/files/" + name})
}
