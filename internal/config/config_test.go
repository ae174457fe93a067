package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
bot:
  token: "123:abc"
stt:
  provider: whisper
  openai_key: sk-test
`)
	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Pipeline.QueueCapacity != 32 {
		t.Errorf("expected default queue capacity 32, got %d", cfg.Pipeline.QueueCapacity)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Errorf("expected default 2 workers, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.MaxAttempts != 3 {
		t.Errorf("expected default 3 attempts, got %d", cfg.Pipeline.MaxAttempts)
	}
	if cfg.Pipeline.TranscribeTimeout != 300*time.Second {
		t.Errorf("expected default transcribe timeout, got %s", cfg.Pipeline.TranscribeTimeout)
	}
	if cfg.STT.WhisperModel != "whisper-1" {
		t.Errorf("expected default whisper model, got %q", cfg.STT.WhisperModel)
	}
	if cfg.Ops.Port != 8080 {
		t.Errorf("expected default ops port, got %d", cfg.Ops.Port)
	}
	if cfg.Storage.MaxFileSizeMB != 50 {
		t.Errorf("expected default max file size, got %d", cfg.Storage.MaxFileSizeMB)
	}
	if cfg.Runtime.Dev {
		t.Errorf("dev mode must be off")
	}
}

func TestLoadConfig_RequiresToken(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
stt:
  provider: whisper
  openai_key: sk-test
`)
	if _, err := LoadConfig(path, false); err == nil || !strings.Contains(err.Error(), "bot.token") {
		t.Fatalf("expected token error, got %v", err)
	}
}

func TestLoadConfig_ProviderKeyValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		stt  string
		ok   bool
	}{
		{"whisper with key", "provider: whisper\n  openai_key: sk", true},
		{"whisper without key", "provider: whisper", false},
		{"google with key", "provider: google\n  google_key: gk", true},
		{"google without key", "provider: google", false},
		{"elevenlabs with key", "provider: elevenlabs\n  elevenlabs_key: ek", true},
		{"unknown provider", "provider: deepgram", false},
	}
	for _, c := range cases {
		path := writeConfig(t, "bot:\n  token: \"123:abc\"\nstt:\n  "+c.stt+"\n")
		_, err := LoadConfig(path, false)
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadConfig_DevFlag(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
bot:
  token: "123:abc"
stt:
  provider: whisper
  openai_key: sk-test
`)
	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Runtime.Dev {
		t.Fatalf("expected dev mode on")
	}
}
