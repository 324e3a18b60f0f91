// Package errs defines the error taxonomy shared by the client: every
// failure is mapped onto one sentinel here and converted to a single
// user-facing notice at the operation that caused it.
package errs

import "errors"

// Validation errors: rejected locally before any network call.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Transport errors: the collaborator call failed. No automatic retry;
// the user re-triggers the action.
var (
	ErrHistoryUnavailable = errors.New("failed to load chat history")
	ErrUploadTimeout      = errors.New("upload timed out")
	ErrUploadTooLarge     = errors.New("file rejected by server as too large")
	ErrUploadFailed       = errors.New("upload failed")
)

// Device errors: recording could not start.
var (
	ErrMicrophoneDenied = errors.New("microphone access denied")
	ErrNoMicrophone     = errors.New("no microphone found")
)

// ErrUploadInFlight is returned when a second upload is attempted from
// a screen that already has one pending.
var ErrUploadInFlight = errors.New("another upload is in progress")

// Notice converts an error into the message shown to the user. Unknown
// errors fall through to their own text.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFileType):
		return "Please select an image, audio, video or document file"
	case errors.Is(err, ErrFileTooLarge):
		return "File size must be less than 10MB"
	case errors.Is(err, ErrHistoryUnavailable):
		return "Failed to load chat history"
	case errors.Is(err, ErrUploadTimeout):
		return "Upload timeout. Please try again."
	case errors.Is(err, ErrUploadTooLarge):
		return "File too large. Please select a smaller file."
	case errors.Is(err, ErrUploadFailed):
		return "Failed to upload file"
	case errors.Is(err, ErrMicrophoneDenied):
		return "Microphone access denied. Please allow microphone access and try again."
	case errors.Is(err, ErrNoMicrophone):
		return "No microphone found. Please connect a microphone and try again."
	case errors.Is(err, ErrUploadInFlight):
		return "Please wait for the current upload to finish"
	default:
		return err.Error()
	}
}
