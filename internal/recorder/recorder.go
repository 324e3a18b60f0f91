// Package recorder captures voice notes: audio is buffered from a
// source until the user signals stop, then packaged as one file for the
// regular attachment path.
package recorder

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyRecording is returned by Start while a capture is active.
var ErrAlreadyRecording = errors.New("recording already in progress")

// Source produces encoded audio chunks. Implementations map device
// failures onto the errs package sentinels.
type Source interface {
	Start(ctx context.Context) (<-chan []byte, error)
	Stop()
	ContentType() string
}

// Recording is one finished voice capture, ready for upload.
type Recording struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Recorder drives a Source and accumulates its output. The same stop
// action that ends capture finalizes the recording.
type Recorder struct {
	mu        sync.Mutex
	src       Source
	active    bool
	startedAt time.Time
	buf       bytes.Buffer
	cancel    context.CancelFunc
	drained   chan struct{}
}

func New(src Source) *Recorder {
	return &Recorder{src: src}
}

// Start begins capture. Device errors from the source are returned
// as-is so the caller can surface a cause-specific notice; recording
// simply does not start.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.mu.Unlock()

	cctx, cancel := context.WithCancel(ctx)
	ch, err := r.src.Start(cctx)
	if err != nil {
		cancel()
		return err
	}

	r.mu.Lock()
	r.active = true
	r.startedAt = time.Now()
	r.buf.Reset()
	r.cancel = cancel
	r.drained = make(chan struct{})
	drained := r.drained
	r.mu.Unlock()

	go func() {
		defer close(drained)
		for chunk := range ch {
			r.mu.Lock()
			r.buf.Write(chunk)
			r.mu.Unlock()
		}
	}()

	return nil
}

// Stop ends capture and returns the packaged recording. The boolean is
// false if nothing was being recorded.
func (r *Recorder) Stop() (Recording, bool) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return Recording{}, false
	}
	cancel := r.cancel
	drained := r.drained
	r.mu.Unlock()

	cancel()
	r.src.Stop()
	<-drained

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false

	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	r.buf.Reset()

	ct := r.src.ContentType()
	return Recording{
		Data:        data,
		ContentType: ct,
		FileName:    "voice-" + uuid.NewString() + extensionFor(ct),
	}, true
}

// Active reports whether a capture is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Elapsed is the current capture duration, zero when not recording.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return 0
	}
	return time.Since(r.startedAt)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	case "audio/wav":
		return ".wav"
	default:
		return ".bin"
	}
}
