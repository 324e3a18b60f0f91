// Package history fetches the ordered message history for a two-party
// thread from the backend.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/saurabh-saran/ChatUI/internal/chat"
	"github.com/saurabh-saran/ChatUI/pkg/errs"
)

// Loader performs one-shot history requests. The returned ordering is
// server-authoritative and never re-sorted client side.
type Loader struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewLoader(baseURL, token string) *Loader {
	return &Loader{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Load fetches all messages between localUser and peer, oldest first.
// Failures are distinct from empty history: an empty thread returns an
// empty slice and nil error.
func (l *Loader) Load(ctx context.Context, localUser, peer string) ([]chat.Message, error) {
	q := url.Values{}
	q.Set("from", localUser)
	q.Set("to", peer)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+"/api/messages?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHistoryUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+l.Token)

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHistoryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %d", errs.ErrHistoryUnavailable, resp.StatusCode)
	}

	var messages []chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHistoryUnavailable, err)
	}

	return messages, nil
}
