package tts

import (
	"errors"
	"fmt"
)

var (
	// ErrThrottled is matched by errors from a backend that refused a
	// request because of rate or quota limits.
	ErrThrottled = errors.New("speech synthesis throttled")

	// ErrBackendsExhausted is returned by a Failover whose every backend
	// has been throttled.
	ErrBackendsExhausted = errors.New("all synthesis backends exhausted")

	// ErrEmptyAudio is returned when a backend answers without audio.
	ErrEmptyAudio = errors.New("backend returned no audio")
)

// SynthesisError provides detailed error information from a backend.
type SynthesisError struct {
	// Provider is the display name of the backend that failed.
	Provider string
	// Code is the backend-specific error code or HTTP status.
	Code string
	// Message is the error message.
	Message string
	// Cause is the underlying error (if any).
	Cause error
	// Throttled marks rate and quota refusals.
	Throttled bool
}

func (e *SynthesisError) Error() string {
	msg := e.Provider + ": " + e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

func (e *SynthesisError) Is(target error) bool {
	return target == ErrThrottled && e.Throttled
}

// IsThrottled reports whether err is a throttling refusal.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

func throttled(provider, code, message string, cause error) *SynthesisError {
	return &SynthesisError{Provider: provider, Code: code, Message: message, Cause: cause, Throttled: true}
}

func failed(provider, code, message string, cause error) *SynthesisError {
	return &SynthesisError{Provider: provider, Code: code, Message: message, Cause: cause}
}
