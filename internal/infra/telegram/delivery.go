package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-stt-bot/internal/domain"
	"telegram-stt-bot/internal/domain/model"
	"telegram-stt-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.SourceFetcher = (*Bot)(nil)
	_ adapter.ResultSink    = (*Bot)(nil)
)

// Telegram rejects messages over 4096 characters; stay under with headroom
// for the part header.
const maxChunkLen = 4000

func (b *Bot) sourceRef(ref model.SourceRef) (*SourceRef, error) {
	r, ok := ref.(*SourceRef)
	if !ok || r == nil {
		return nil, fmt.Errorf("unexpected source ref type %T", ref)
	}
	return r, nil
}

// Fetch downloads the Telegram file behind the source ref into destDir and
// returns the local path.
func (b *Bot) Fetch(ctx context.Context, ref model.SourceRef, destDir string) (string, error) {
	r, err := b.sourceRef(ref)
	if err != nil {
		return "", err
	}

	f, err := b.api.GetFile(tgbotapi.FileConfig{FileID: r.FileID})
	if err != nil {
		// The Bot API refuses files over its download limit with an error here.
		return "", fmt.Errorf("get file %s: %w: %v", r.FileID, domain.ErrTransient, err)
	}
	if f.FilePath == "" {
		return "", fmt.Errorf("file %s: %w", r.FileID, domain.ErrFetchNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Link(b.api.Token), nil)
	if err != nil {
		return "", err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w: %v", r.FileID, domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("download %s: %w", r.FileID, domain.ErrFetchNotFound)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("download %s: status %d: %w", r.FileID, resp.StatusCode, domain.ErrTransient)
	}

	name := filepath.Base(r.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "input.bin"
	}
	dest := filepath.Join(destDir, "source_"+name)
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("download %s: %w: %v", r.FileID, domain.ErrTransient, err)
	}
	return dest, nil
}

// DeliverTranscript replaces the acknowledgment with the transcript, split
// into numbered parts when it exceeds the message limit.
func (b *Bot) DeliverTranscript(ctx context.Context, ref model.SourceRef, text string) error {
	r, err := b.sourceRef(ref)
	if err != nil {
		return err
	}
	b.delete(r.ChatID, r.AckMessageID)

	text = strings.TrimSpace(text)
	if text == "" {
		b.reply(r.ChatID, r.ReplyToMessageID, "🔇 No speech detected in the audio.")
		return nil
	}

	chunks := splitMessage(text, maxChunkLen)
	for i, chunk := range chunks {
		body := "📝 " + escapeMarkdownV2(chunk)
		if len(chunks) > 1 {
			body = fmt.Sprintf("📝 *Part %d of %d*\n\n%s", i+1, len(chunks), escapeMarkdownV2(chunk))
		}
		m := tgbotapi.NewMessage(r.ChatID, body)
		m.ParseMode = tgbotapi.ModeMarkdownV2
		if i == 0 {
			m.ReplyToMessageID = r.ReplyToMessageID
		}
		if _, err := b.api.Send(m); err != nil {
			// Formatting rejections should not lose the transcript; retry plain.
			plain := tgbotapi.NewMessage(r.ChatID, chunk)
			if i == 0 {
				plain.ReplyToMessageID = r.ReplyToMessageID
			}
			if _, perr := b.api.Send(plain); perr != nil {
				return fmt.Errorf("deliver transcript: %w: %v", domain.ErrTransient, perr)
			}
		}
	}
	return nil
}

// DeliverFailure replaces the acknowledgment with a failure notice.
func (b *Bot) DeliverFailure(ctx context.Context, ref model.SourceRef, userMessage string) error {
	r, err := b.sourceRef(ref)
	if err != nil {
		return err
	}
	b.delete(r.ChatID, r.AckMessageID)
	m := tgbotapi.NewMessage(r.ChatID, "❌ "+userMessage)
	m.ReplyToMessageID = r.ReplyToMessageID
	if _, err := b.api.Send(m); err != nil {
		return fmt.Errorf("deliver failure notice: %w: %v", domain.ErrTransient, err)
	}
	return nil
}

// Progress edits the acknowledgment message in place. Best effort.
func (b *Bot) Progress(ctx context.Context, ref model.SourceRef, note string) {
	r, err := b.sourceRef(ref)
	if err != nil {
		return
	}
	b.edit(r.ChatID, r.AckMessageID, note)
}

// splitMessage cuts text into chunks no longer than limit bytes, preferring
// newline then space boundaries. Continuous-script text without either falls
// back to a rune boundary, never a mid-rune byte cut.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := limit
		if i := strings.LastIndexByte(text[:limit], '\n'); i > limit/2 {
			cut = i
		} else if i := strings.LastIndexByte(text[:limit], ' '); i > limit/2 {
			cut = i
		} else {
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

var markdownV2Escaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

func escapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}
