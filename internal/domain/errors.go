package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when an operation needs an API key and none is set.
	ErrConfiguration = errors.New("api key is not set")
	// ErrUnsupportedMedia is returned for uploads that are not PNG or JPEG images.
	ErrUnsupportedMedia = errors.New("unsupported media: only PNG or JPG images are accepted")
	// ErrEmptyTranscript is returned when speech is requested with no assistant turn to read.
	ErrEmptyTranscript = errors.New("transcript has no assistant message")
	// ErrEmptyPrompt is returned when a user submits blank text.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrSessionBusy is returned when a session already has an operation in flight.
	ErrSessionBusy = errors.New("session is busy")
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")
)

// TransportError wraps a network or upstream API failure.
type TransportError struct {
	Op  string // "completion", "speech", "models"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnsupportedMediaError carries the reason an upload was rejected.
type UnsupportedMediaError struct {
	Filename string
	Reason   string
}

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("%v: %s (%s)", ErrUnsupportedMedia, e.Filename, e.Reason)
}

func (e *UnsupportedMediaError) Is(target error) bool {
	return target == ErrUnsupportedMedia
}

// ErrorCode returns the stable client-facing code for err.
func ErrorCode(err error) string {
	var transportErr *TransportError
	switch {
	case errors.Is(err, ErrConfiguration):
		return "api_key_required"
	case errors.Is(err, ErrUnsupportedMedia):
		return "unsupported_media"
	case errors.Is(err, ErrEmptyTranscript):
		return "empty_transcript"
	case errors.Is(err, ErrSessionBusy):
		return "session_busy"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrEmptyPrompt):
		return "empty_prompt"
	case errors.As(err, &transportErr):
		return "upstream_error"
	default:
		return "internal_error"
	}
}
