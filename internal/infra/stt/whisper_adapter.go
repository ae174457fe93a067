package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"telegram-stt-bot/internal/domain"
	"telegram-stt-bot/internal/domain/ports/adapter"
)

var _ adapter.Transcriber = (*WhisperAdapter)(nil)

// WhisperAdapter implements adapter.Transcriber against the OpenAI audio
// transcriptions API using the official SDK.
type WhisperAdapter struct {
	client openai.Client
	model  string
}

func NewWhisperAdapter(apiKey, model string) (*WhisperAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("whisper: api key empty")
	}
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (w *WhisperAdapter) Name() string { return "whisper" }

// Whisper accepts compressed formats; 16 kHz mono WAV keeps results
// consistent across providers.
func (w *WhisperAdapter) InputSpec() adapter.TargetSpec {
	return adapter.TargetSpec{Codec: "pcm_s16le", Container: "wav", SampleRate: 16000, Channels: 1}
}

func (w *WhisperAdapter) Transcribe(ctx context.Context, req adapter.TranscribeRequest) (*adapter.Transcript, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: open audio: %w", domain.ErrTransient)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(w.model),
	}
	if req.LanguageHint != "" {
		params.Language = openai.String(req.LanguageHint)
	}

	res, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	return &adapter.Transcript{Text: strings.TrimSpace(res.Text)}, nil
}

func classifyOpenAIError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("whisper: http %d: %w", apierr.StatusCode, domain.ErrAuthFailed)
		case http.StatusTooManyRequests:
			return fmt.Errorf("whisper: http 429: %w", &domain.RateLimitError{RetryAfter: retryAfterHeader(apierr.Response)})
		case http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType, http.StatusBadRequest:
			return fmt.Errorf("whisper: http %d: %w", apierr.StatusCode, domain.ErrUnsupportedAudio)
		default:
			return fmt.Errorf("whisper: http %d: %w", apierr.StatusCode, domain.ErrTransient)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("whisper: %v: %w", err, domain.ErrTransient)
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return d
		}
	}
	return 0
}
