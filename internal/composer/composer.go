// Package composer turns user intent into published messages. Text is
// sent optimistically; attachments are validated, uploaded, then
// published.
package composer

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/saurabh-saran/ChatUI/internal/chat"
	"github.com/saurabh-saran/ChatUI/internal/transport"
	"github.com/saurabh-saran/ChatUI/pkg/errs"
)

// Publisher is the slice of the transport handle used for sending.
type Publisher interface {
	Publish(event string, payload interface{})
}

// Uploader stores a file with the media collaborator.
type Uploader interface {
	Upload(ctx context.Context, fileName, contentType string, data []byte) (string, error)
}

// Thread receives the optimistic local append of composed messages.
type Thread interface {
	Merge(m chat.Message)
	Closed() bool
}

// DefaultMaxUploadBytes is the client-side upload ceiling.
const DefaultMaxUploadBytes = 10 * 1024 * 1024

// Composer builds and publishes messages for one conversation screen.
// At most one upload may be in flight at a time; callers disable the
// compose controls while Uploading reports true.
type Composer struct {
	mu        sync.Mutex
	uploading bool

	localUser string
	peer      string
	maxBytes  int64

	publisher Publisher
	uploader  Uploader
	thread    Thread
}

func New(publisher Publisher, uploader Uploader, thread Thread, localUser, peer string, maxBytes int64) *Composer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Composer{
		localUser: localUser,
		peer:      peer,
		maxBytes:  maxBytes,
		publisher: publisher,
		uploader:  uploader,
		thread:    thread,
	}
}

// SendText trims and publishes a text message. Whitespace-only input is
// a no-op, not an error. Returns whether a message was sent so the
// caller knows to clear its input.
func (c *Composer) SendText(input string) bool {
	body := strings.TrimSpace(input)
	if body == "" {
		return false
	}

	msg := chat.NewText(c.localUser, c.peer, body)
	msg.ClientID = uuid.NewString()

	c.publisher.Publish(transport.EventSendMessage, msg)
	c.thread.Merge(msg)
	return true
}

// SendFile validates, uploads and publishes an attachment. Validation
// failures reject before any upload call; upload failures publish
// nothing. The in-flight flag is cleared on every path so controls are
// never left disabled.
func (c *Composer) SendFile(ctx context.Context, fileName, contentType string, data []byte) error {
	kind, ok := chat.KindForContentType(contentType)
	if !ok {
		return errs.ErrUnsupportedFileType
	}
	if int64(len(data)) > c.maxBytes {
		return errs.ErrFileTooLarge
	}

	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return errs.ErrUploadInFlight
	}
	c.uploading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.mu.Unlock()
	}()

	fileURL, err := c.uploader.Upload(ctx, fileName, contentType, data)
	if err != nil {
		return err
	}

	// Screen closed while the upload was in flight: discard the result.
	if c.thread.Closed() {
		return nil
	}

	msg := chat.NewAttachment(c.localUser, c.peer, kind, fileURL, fileName)
	msg.ClientID = uuid.NewString()

	c.publisher.Publish(transport.EventSendMessage, msg)
	c.thread.Merge(msg)
	return nil
}

// Uploading reports whether an upload is in flight for this screen.
func (c *Composer) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}
