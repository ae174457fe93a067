package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"telegram-stt-bot/internal/domain"
	"telegram-stt-bot/internal/domain/ports/adapter"
)

var _ adapter.Transcriber = (*ElevenLabsAdapter)(nil)

// ElevenLabsAdapter implements adapter.Transcriber against the ElevenLabs
// speech-to-text endpoint. No official Go SDK exists, so the request and
// response mapping live here.
type ElevenLabsAdapter struct {
	apiKey string
	base   string
	model  string
	client *http.Client
}

func NewElevenLabsAdapter(apiKey string) (*ElevenLabsAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: api key empty")
	}
	return &ElevenLabsAdapter{
		apiKey: apiKey,
		base:   "https://api.elevenlabs.io/v1",
		model:  "scribe_v1",
		client: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (e *ElevenLabsAdapter) Name() string { return "elevenlabs" }

func (e *ElevenLabsAdapter) InputSpec() adapter.TargetSpec {
	return adapter.TargetSpec{Codec: "pcm_s16le", Container: "wav", SampleRate: 16000, Channels: 1}
}

func (e *ElevenLabsAdapter) Transcribe(ctx context.Context, req adapter.TranscribeRequest) (*adapter.Transcript, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: open audio: %w", domain.ErrTransient)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build form: %w", domain.ErrTransient)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", domain.ErrTransient)
	}
	_ = mw.WriteField("model_id", e.model)
	if req.LanguageHint != "" {
		_ = mw.WriteField("language_code", req.LanguageHint)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("elevenlabs: close form: %w", domain.ErrTransient)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.base+"/speech-to-text", &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("xi-api-key", e.apiKey)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("elevenlabs: %v: %w", err, domain.ErrTransient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read response: %w", domain.ErrTransient)
	}

	if resp.StatusCode >= 300 {
		return nil, e.classifyStatus(resp, body)
	}

	var payload struct {
		Text         string `json:"text"`
		LanguageCode string `json:"language_code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// Some deployments answer with bare text.
		return &adapter.Transcript{Text: strings.TrimSpace(string(body))}, nil
	}
	return &adapter.Transcript{Text: strings.TrimSpace(payload.Text), Language: payload.LanguageCode}, nil
}

func (e *ElevenLabsAdapter) classifyStatus(resp *http.Response, body []byte) error {
	detail := errorDetail(body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("elevenlabs: %s: %w", detail, domain.ErrAuthFailed)
	case http.StatusTooManyRequests:
		var after time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				after = time.Duration(secs) * time.Second
			}
		}
		return fmt.Errorf("elevenlabs: %s: %w", detail, &domain.RateLimitError{RetryAfter: after})
	case http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return fmt.Errorf("elevenlabs: %s: %w", detail, domain.ErrUnsupportedAudio)
	default:
		return fmt.Errorf("elevenlabs: http %d: %s: %w", resp.StatusCode, detail, domain.ErrTransient)
	}
}

func errorDetail(body []byte) string {
	var payload struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
	}
	return "unknown error"
}
