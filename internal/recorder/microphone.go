package recorder

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"

	"github.com/saurabh-saran/ChatUI/pkg/errs"
)

// MicSource captures microphone audio as opus through pion
// mediadevices.
type MicSource struct {
	mu     sync.Mutex
	stream mediadevices.MediaStream
	reader io.ReadCloser
}

func NewMicSource() *MicSource {
	return &MicSource{}
}

func (s *MicSource) ContentType() string { return "audio/ogg" }

func (s *MicSource) Start(ctx context.Context) (<-chan []byte, error) {
	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrNoMicrophone, err)
	}
	opusParams.BitRate = 32_000

	selector := mediadevices.NewCodecSelector(
		mediadevices.WithAudioEncoders(&opusParams),
	)

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {},
		Codec: selector,
	})
	if err != nil {
		return nil, classifyDeviceError(err)
	}

	tracks := stream.GetAudioTracks()
	if len(tracks) == 0 {
		closeStream(stream)
		return nil, errs.ErrNoMicrophone
	}

	reader, err := tracks[0].NewEncodedIOReader(opusParams.RTPCodec().MimeType)
	if err != nil {
		closeStream(stream)
		return nil, fmt.Errorf("%w: %v", errs.ErrNoMicrophone, err)
	}

	s.mu.Lock()
	s.stream = stream
	s.reader = reader
	s.mu.Unlock()

	ch := make(chan []byte, 64)
	go func() {
		defer close(ch)
		buf := make([]byte, 4096)
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case ch <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	return ch, nil
}

func (s *MicSource) Stop() {
	s.mu.Lock()
	reader := s.reader
	stream := s.stream
	s.reader = nil
	s.stream = nil
	s.mu.Unlock()

	if reader != nil {
		reader.Close()
	}
	if stream != nil {
		closeStream(stream)
	}
}

func closeStream(stream mediadevices.MediaStream) {
	for _, track := range stream.GetTracks() {
		track.Close()
	}
}

func classifyDeviceError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "denied") {
		return fmt.Errorf("%w: %v", errs.ErrMicrophoneDenied, err)
	}
	return fmt.Errorf("%w: %v", errs.ErrNoMicrophone, err)
}
