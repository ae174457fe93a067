package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-stt-bot/internal/domain/model"
)

func TestSplitMessage_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	chunks := splitMessage("hello", maxChunkLen)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestSplitMessage_RespectsLimit(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 3000) // ~15000 chars
	chunks := splitMessage(long, maxChunkLen)
	if len(chunks) < 4 {
		t.Fatalf("expected at least 4 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > maxChunkLen {
			t.Fatalf("chunk %d exceeds limit: %d", i, len(c))
		}
		if c == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
	// nothing lost
	joined := strings.Join(chunks, " ")
	if strings.ReplaceAll(joined, " ", "") != strings.ReplaceAll(long, " ", "") {
		t.Fatalf("content lost while splitting")
	}
}

func TestSplitMessage_ContinuousScriptKeepsRunesIntact(t *testing.T) {
	t.Parallel()

	// no spaces or newlines anywhere, every rune is multi-byte
	long := strings.Repeat("音", 3000)
	chunks := splitMessage(long, maxChunkLen)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	var joined strings.Builder
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8", i)
		}
		if len(c) > maxChunkLen {
			t.Fatalf("chunk %d exceeds limit: %d", i, len(c))
		}
		joined.WriteString(c)
	}
	if joined.String() != long {
		t.Fatalf("content lost while splitting")
	}
}

func TestSplitMessage_PrefersNewlineBoundary(t *testing.T) {
	t.Parallel()

	para := strings.Repeat("a", 3000) + "\n" + strings.Repeat("b", 3000)
	chunks := splitMessage(para, maxChunkLen)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if strings.ContainsRune(chunks[0], 'b') {
		t.Fatalf("split ignored the newline boundary")
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	t.Parallel()

	in := "a_b *c* [d](e) ~f~ `g` >h #i +j -k =l |m {n} .o !p"
	out := escapeMarkdownV2(in)
	for _, ch := range []string{"\\_", "\\*", "\\[", "\\]", "\\(", "\\)", "\\~", "\\`", "\\>", "\\#", "\\+", "\\-", "\\=", "\\|", "\\{", "\\}", "\\.", "\\!"} {
		if !strings.Contains(out, ch) {
			t.Errorf("expected %q in escaped output", ch)
		}
	}
	if escapeMarkdownV2("plain text") != "plain text" {
		t.Errorf("plain text must pass through unchanged")
	}
}

func TestExtractMedia(t *testing.T) {
	t.Parallel()

	kind, fileID, _, _ := extractMedia(&tgbotapi.Message{})
	if kind != "" || fileID != "" {
		t.Fatalf("expected empty extraction, got %q %q", kind, fileID)
	}

	msg := &tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "v1", FileSize: 100}}
	kind, fileID, name, size := extractMedia(msg)
	if kind != model.InputKindVoice || fileID != "v1" || name != "voice.ogg" || size != 100 {
		t.Fatalf("unexpected voice extraction: %s %s %s %d", kind, fileID, name, size)
	}

	msg = &tgbotapi.Message{Audio: &tgbotapi.Audio{FileID: "a1", FileName: "song.mp3", FileSize: 200}}
	kind, fileID, name, size = extractMedia(msg)
	if kind != model.InputKindAudioFile || fileID != "a1" || name != "song.mp3" || size != 200 {
		t.Fatalf("unexpected audio extraction: %s %s %s %d", kind, fileID, name, size)
	}

	msg = &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d1", FileSize: 300}}
	kind, fileID, name, _ = extractMedia(msg)
	if kind != model.InputKindDocument || name != "document.bin" {
		t.Fatalf("unexpected document extraction: %s %s %s", kind, fileID, name)
	}

	msg = &tgbotapi.Message{VideoNote: &tgbotapi.VideoNote{FileID: "n1", FileSize: 400}}
	kind, _, _, _ = extractMedia(msg)
	if kind != model.InputKindVideoNote {
		t.Fatalf("unexpected kind: %s", kind)
	}
}
