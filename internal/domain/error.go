package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// Admission
	ErrQueueFull   = errors.New("queue full")
	ErrJobNotFound = errors.New("job not found")

	// Fetch
	ErrFetchNotFound = errors.New("source file not found")
	ErrFileTooLarge  = errors.New("file too large")

	// Conversion: all fatal, re-running on the same input cannot succeed
	ErrUnsupportedInput  = errors.New("unsupported input format")
	ErrToolFailure       = errors.New("conversion tool failed")
	ErrConversionTimeout = errors.New("conversion timed out")

	// Provider
	ErrRateLimited      = errors.New("provider rate limited")
	ErrAuthFailed       = errors.New("provider authentication failed")
	ErrUnsupportedAudio = errors.New("audio not supported by provider")

	// Generic retryable network/IO failure
	ErrTransient = errors.New("transient failure")

	// Resources
	ErrDiskPressure = errors.New("insufficient free disk space")

	// Cancellation is not a failure; jobs end in Cancelled
	ErrCancelled = errors.New("job cancelled")
)

// RateLimitError carries the provider's retry-after hint when one was given.
// It matches ErrRateLimited under errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider rate limited (retry after %s)", e.RetryAfter)
	}
	return "provider rate limited"
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// Retryable reports whether a stage error is worth another attempt.
// Fatal classifications (bad input, auth, unsupported audio, disk pressure)
// fail the job immediately.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTransient),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}

// RetryAfter extracts a provider retry-after hint, if the error carries one.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}

// UserMessage maps a terminal failure onto one concise, non-technical line.
// Raw provider payloads and internal detail stay in the logs.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrQueueFull):
		return "The transcription queue is full right now. Please try again in a minute."
	case errors.Is(err, ErrFileTooLarge):
		return "This file is too large to transcribe."
	case errors.Is(err, ErrFetchNotFound):
		return "The file could not be downloaded. Please send it again."
	case errors.Is(err, ErrUnsupportedInput):
		return "Unsupported audio format. Please send voice messages, audio files (.mp3, .m4a, .ogg) or video files."
	case errors.Is(err, ErrToolFailure), errors.Is(err, ErrConversionTimeout):
		return "Failed to process the audio. The file might be corrupted."
	case errors.Is(err, ErrRateLimited):
		return "The transcription service is busy, please retry shortly."
	case errors.Is(err, ErrAuthFailed):
		return "The transcription service is misconfigured. Please contact the operator."
	case errors.Is(err, ErrUnsupportedAudio):
		return "The transcription service cannot handle this audio (it may be too long)."
	case errors.Is(err, ErrDiskPressure):
		return "The service is temporarily out of resources. Please try again later."
	default:
		return "An error occurred while transcribing your audio. Please try again."
	}
}
