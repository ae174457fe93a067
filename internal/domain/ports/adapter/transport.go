package adapter

import (
	"context"

	"telegram-stt-bot/internal/domain/model"
)

// SourceFetcher downloads the original media for a job into its working
// directory and returns the local path. Implemented by the chat transport.
type SourceFetcher interface {
	Fetch(ctx context.Context, ref model.SourceRef, destDir string) (string, error)
}

// ResultSink carries terminal outcomes back to the requester. Only terminal
// outcomes cross this boundary; stage-level detail stays in the logs.
type ResultSink interface {
	// DeliverTranscript sends the final transcript text.
	DeliverTranscript(ctx context.Context, ref model.SourceRef, transcript string) error

	// DeliverFailure sends one concise, non-technical failure message.
	DeliverFailure(ctx context.Context, ref model.SourceRef, userMsg string) error

	// Progress updates the requester-visible status note (queued position,
	// processing). Best effort; errors are logged, never fatal.
	Progress(ctx context.Context, ref model.SourceRef, note string)
}
