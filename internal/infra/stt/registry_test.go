package stt

import (
	"context"
	"strings"
	"testing"

	"telegram-stt-bot/internal/domain/ports/adapter"
)

type stubTranscriber struct{ name string }

func (s *stubTranscriber) Name() string { return s.name }

func (s *stubTranscriber) InputSpec() adapter.TargetSpec {
	return adapter.TargetSpec{Codec: "pcm_s16le", Container: "wav", SampleRate: 16000, Channels: 1}
}

func (s *stubTranscriber) Transcribe(context.Context, adapter.TranscribeRequest) (*adapter.Transcript, error) {
	return &adapter.Transcript{Text: "stub"}, nil
}

func TestRegistry_ResolveDefault(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry("whisper", &stubTranscriber{name: "whisper"}, &stubTranscriber{name: "google"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	got, err := r.Resolve("")
	if err != nil {
		t.Fatalf("Resolve default: %v", err)
	}
	if got.Name() != "whisper" {
		t.Fatalf("expected default whisper, got %s", got.Name())
	}

	got, err = r.Resolve("Google")
	if err != nil {
		t.Fatalf("Resolve by name: %v", err)
	}
	if got.Name() != "google" {
		t.Fatalf("expected google, got %s", got.Name())
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry("whisper", &stubTranscriber{name: "whisper"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := r.Resolve("deepgram"); err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}

func TestRegistry_DefaultMustBeRegistered(t *testing.T) {
	t.Parallel()

	if _, err := NewRegistry("google", &stubTranscriber{name: "whisper"}); err == nil {
		t.Fatalf("expected error for unregistered default")
	}
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry("whisper",
		&stubTranscriber{name: "whisper"},
		&stubTranscriber{name: "google"},
		&stubTranscriber{name: "elevenlabs"},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	names := r.Names()
	want := []string{"elevenlabs", "google", "whisper"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestTargetSpec_MimeType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		container string
		want      string
	}{
		{"wav", "audio/wav"},
		{"flac", "audio/flac"},
		{"mp3", "audio/mpeg"},
		{"ogg", "audio/ogg"},
		{"weird", "application/octet-stream"},
	}
	for _, c := range cases {
		spec := adapter.TargetSpec{Container: c.container}
		if got := spec.MimeType(); got != c.want {
			t.Errorf("MimeType(%s) = %s, want %s", c.container, got, c.want)
		}
	}
}
