package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"telegram-stt-bot/internal/domain"
	"telegram-stt-bot/internal/domain/ports/adapter"
)

var _ adapter.Transcriber = (*GoogleAdapter)(nil)

// GoogleAdapter transcribes through Gemini's audio understanding using the
// official SDK.
type GoogleAdapter struct {
	client *genai.Client
	model  string
}

func NewGoogleAdapter(ctx context.Context, apiKey, model string) (*GoogleAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("google: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GoogleAdapter{client: c, model: model}, nil
}

func (g *GoogleAdapter) Name() string { return "google" }

// Gemini handles compressed audio; FLAC keeps the upload small without the
// lossy double-encode of re-compressing to ogg.
func (g *GoogleAdapter) InputSpec() adapter.TargetSpec {
	return adapter.TargetSpec{Codec: "flac", Container: "flac", SampleRate: 16000, Channels: 1}
}

func (g *GoogleAdapter) Transcribe(ctx context.Context, req adapter.TranscribeRequest) (*adapter.Transcript, error) {
	data, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("google: read audio: %w", domain.ErrTransient)
	}

	prompt := "Transcribe this audio verbatim. Return only the spoken text, no commentary."
	if req.LanguageHint != "" {
		prompt = fmt.Sprintf("Transcribe this audio verbatim (language: %s). Return only the spoken text, no commentary.", req.LanguageHint)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: req.MimeType, Data: data}},
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, classifyGoogleError(err)
	}
	text := strings.TrimSpace(resp.Text())
	return &adapter.Transcript{Text: text}, nil
}

func classifyGoogleError(err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		switch {
		case apierr.Code == 401 || apierr.Code == 403:
			return fmt.Errorf("google: http %d: %w", apierr.Code, domain.ErrAuthFailed)
		case apierr.Code == 429:
			return fmt.Errorf("google: http 429: %w", &domain.RateLimitError{})
		case apierr.Code == 400 || apierr.Code == 413:
			return fmt.Errorf("google: http %d: %w", apierr.Code, domain.ErrUnsupportedAudio)
		default:
			return fmt.Errorf("google: http %d: %w", apierr.Code, domain.ErrTransient)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("google: %v: %w", err, domain.ErrTransient)
}
