package chat

import (
	"strings"
	"time"
)

// Kind classifies a message for rendering purposes.
type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindVoice    Kind = "voice"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Message is the unit exchanged over the channel and rendered in a
// conversation. Field names on the wire match the server contract.
type Message struct {
	Sender         string    `json:"from"`
	Recipient      string    `json:"to"`
	Body           string    `json:"message"`
	Kind           Kind      `json:"messageType"`
	AttachmentURL  string    `json:"fileUrl,omitempty"`
	AttachmentName string    `json:"fileName,omitempty"`
	SentAt         time.Time `json:"timestamp"`
	// ClientID is a client-generated id carried for diagnostics. It does
	// not participate in deduplication.
	ClientID string `json:"client_id,omitempty"`
}

// Key identifies a message for deduplication. Two events matching on
// sender, send time and body are the same event observed twice.
type Key struct {
	Sender string
	SentAt int64
	Body   string
}

func (m Message) Key() Key {
	return Key{Sender: m.Sender, SentAt: m.SentAt.UnixNano(), Body: m.Body}
}

// InThread reports whether the message belongs to the two-party thread
// between localUser and peer, in either direction.
func (m Message) InThread(localUser, peer string) bool {
	return (m.Sender == localUser && m.Recipient == peer) ||
		(m.Sender == peer && m.Recipient == localUser)
}

// NewText builds a text message stamped with the current time.
func NewText(sender, recipient, body string) Message {
	return Message{
		Sender:    sender,
		Recipient: recipient,
		Body:      body,
		Kind:      KindText,
		SentAt:    time.Now(),
	}
}

// NewAttachment builds an attachment message referencing an uploaded file.
func NewAttachment(sender, recipient string, kind Kind, fileURL, fileName string) Message {
	return Message{
		Sender:         sender,
		Recipient:      recipient,
		Body:           Caption(kind, fileName),
		Kind:           kind,
		AttachmentURL:  fileURL,
		AttachmentName: fileName,
		SentAt:         time.Now(),
	}
}

// Caption returns the short label shown in place of a body for
// attachment messages.
func Caption(kind Kind, fileName string) string {
	switch kind {
	case KindImage:
		return "📷 Image"
	case KindVoice:
		return "🎤 Voice message"
	case KindVideo:
		return "🎬 Video"
	case KindDocument:
		if fileName != "" {
			return "📎 " + fileName
		}
		return "📎 Document"
	default:
		return ""
	}
}

// documentTypes are the non-media content types accepted as document
// attachments. Everything else outside image/audio/video is rejected.
var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// KindForContentType maps a MIME content type onto a message kind.
// The boolean is false for types outside the allow-list.
func KindForContentType(contentType string) (Kind, bool) {
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))

	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage, true
	case strings.HasPrefix(ct, "audio/"):
		return KindVoice, true
	case strings.HasPrefix(ct, "video/"):
		return KindVideo, true
	case documentTypes[ct]:
		return KindDocument, true
	}
	return "", false
}
