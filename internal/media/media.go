// Package media uploads attachment files to the storage collaborator
// and hands back the retrievable URL. File bytes are never interpreted
// here.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"time"

	"github.com/saurabh-saran/ChatUI/pkg/errs"
)

// UploadTimeout bounds a single upload request.
const UploadTimeout = 30 * time.Second

// Uploader posts files to the backend's upload endpoint.
type Uploader struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewUploader(baseURL, token string) *Uploader {
	return &Uploader{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: UploadTimeout},
	}
}

type uploadResponse struct {
	Success bool   `json:"success"`
	FileURL string `json:"fileUrl"`
	Error   string `json:"error"`
}

// Upload sends one file and returns its URL. Each failure cause maps to
// a distinct error: timeout, rejected-as-too-large, or server failure.
func (u *Uploader) Upload(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUploadFailed, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUploadFailed, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL+"/api/upload", &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+u.Token)

	resp, err := u.Client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return "", errs.ErrUploadTimeout
		}
		return "", fmt.Errorf("%w: %v", errs.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return "", errs.ErrUploadTooLarge
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: server returned %d", errs.ErrUploadFailed, resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUploadFailed, err)
	}
	if !out.Success || out.FileURL == "" {
		if out.Error != "" {
			return "", fmt.Errorf("%w: %s", errs.ErrUploadFailed, out.Error)
		}
		return "", errs.ErrUploadFailed
	}

	return out.FileURL, nil
}
