package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-stt-bot/internal/config"
	"telegram-stt-bot/internal/domain"
	"telegram-stt-bot/internal/domain/model"
	"telegram-stt-bot/internal/domain/ports/repository"
	"telegram-stt-bot/internal/infra/requestlog"
	"telegram-stt-bot/internal/infra/status"
	"telegram-stt-bot/internal/infra/worker"
)

// SourceRef identifies the requester and the original file. The pipeline
// holds it opaquely; only this package looks inside.
type SourceRef struct {
	ChatID           int64
	ReplyToMessageID int
	AckMessageID     int
	FileID           string
	Filename         string
}

// Bot is the chat transport: it polls updates, admits media messages into
// the job queue, downloads source files for the pipeline and delivers
// transcripts and failure notices back to the chat.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	queue    *worker.Queue
	reporter *status.Reporter
	auth     repository.AuthorizedUsers
	reqlog   *requestlog.Logger
	log      *zerolog.Logger

	httpClient *http.Client

	quit     chan struct{}
	stopOnce sync.Once
}

func NewBot(
	cfg *config.Config,
	queue *worker.Queue,
	reporter *status.Reporter,
	auth repository.AuthorizedUsers,
	reqlog *requestlog.Logger,
	log *zerolog.Logger,
) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:        api,
		cfg:        cfg,
		queue:      queue,
		reporter:   reporter,
		auth:       auth,
		reqlog:     reqlog,
		log:        log,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		quit:       make(chan struct{}),
	}, nil
}

// StartPolling consumes Telegram updates with a small worker group until ctx
// is cancelled. Update handling is concurrent so one slow download does not
// stall commands.
func (b *Bot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-b.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	workers := b.cfg.Bot.Workers
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					b.handleUpdate(ctx, update)
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	b.log.Info().Str("bot", b.api.Self.UserName).Int("update_workers", workers).Msg("polling started")
	<-ctx.Done()
	b.api.StopReceivingUpdates()
	wg.Wait()
	return nil
}

func (b *Bot) StopPolling() {
	b.stopOnce.Do(func() { close(b.quit) })
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	ok, err := b.authorized(ctx, msg)
	if err != nil {
		b.log.Error().Err(err).Int64("user", msg.From.ID).Msg("authorization check failed")
		return
	}
	if !ok {
		return // silent, as the original: unauthorized chatter gets no reply
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case hasMedia(msg):
		b.handleMedia(ctx, msg)
	}
}

// authorized applies the optional password gate. A user who sends the
// configured password becomes authorized permanently.
func (b *Bot) authorized(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	if b.cfg.Bot.Password == "" {
		return true, nil
	}
	ok, err := b.auth.IsAuthorized(ctx, msg.From.ID)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	if msg.Text == b.cfg.Bot.Password {
		if err := b.auth.Authorize(ctx, msg.From.ID); err != nil {
			return false, err
		}
		b.reply(msg.Chat.ID, msg.MessageID, "You are now authorized. Send me audio to transcribe!")
		b.log.Info().Int64("user", msg.From.ID).Msg("user authorized")
		// The password message itself needs no further handling.
	}
	return false, nil
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, 0, "🎤 Welcome to the Speech-to-Text Bot!\n\n"+
			"Send me:\n"+
			"• Voice messages\n"+
			"• Video notes\n"+
			"• Audio files (.mp3, .m4a, .ogg, ...)\n"+
			"• Video files (I'll extract the audio)\n\n"+
			"I'll transcribe the speech and send you the text.")
	case "help":
		b.reply(msg.Chat.ID, 0, "Commands:\n"+
			"/start – what this bot does\n"+
			"/status – bot and provider status\n"+
			"/queue – queue statistics\n"+
			"/cancel <job id> – cancel a job\n"+
			"/help – this text")
	case "status":
		stats := b.queue.Stats()
		b.reply(msg.Chat.ID, 0, fmt.Sprintf(
			"🤖 Bot: online\n🔧 Provider: %s\n⚙️ Workers: %d\n📊 Queue: %d/%d",
			b.cfg.STT.Provider, stats.Workers, stats.Queued, stats.Capacity))
	case "queue":
		b.reply(msg.Chat.ID, 0, renderSnapshot(b.reporter.Snapshot()))
	case "cancel":
		id := strings.TrimSpace(msg.CommandArguments())
		if id == "" {
			b.reply(msg.Chat.ID, msg.MessageID, "Usage: /cancel <job id>")
			return
		}
		if b.queue.Cancel(id) {
			b.reply(msg.Chat.ID, msg.MessageID, "Cancellation requested.")
		} else {
			b.reply(msg.Chat.ID, msg.MessageID, "No such job, or it already finished.")
		}
	}
}

func (b *Bot) handleMedia(ctx context.Context, msg *tgbotapi.Message) {
	kind, fileID, filename, size := extractMedia(msg)
	if fileID == "" {
		b.reply(msg.Chat.ID, msg.MessageID, domain.UserMessage(domain.ErrUnsupportedInput))
		return
	}
	if size > b.cfg.Storage.MaxFileSizeMB*1024*1024 {
		b.reply(msg.Chat.ID, msg.MessageID, domain.UserMessage(domain.ErrFileTooLarge))
		return
	}

	b.reqlog.LogRequest(msg.From.ID, msg.From.UserName, size)

	ack, err := b.send(tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("📥 Adding to queue...\nFile: %s", filename)))
	if err != nil {
		b.log.Error().Err(err).Int64("chat", msg.Chat.ID).Msg("could not send ack message")
		return
	}

	ref := &SourceRef{
		ChatID:           msg.Chat.ID,
		ReplyToMessageID: msg.MessageID,
		AckMessageID:     ack.MessageID,
		FileID:           fileID,
		Filename:         filename,
	}

	job, err := b.queue.Submit(worker.SubmitRequest{
		Source:    ref,
		Kind:      kind,
		Filename:  filename,
		SizeBytes: size,
	})
	if err != nil {
		b.edit(msg.Chat.ID, ack.MessageID, domain.UserMessage(err))
		return
	}

	stats := b.queue.Stats()
	b.edit(msg.Chat.ID, ack.MessageID, fmt.Sprintf(
		"📥 Added to queue (position: %d)\nFile: %s\nJob: %s", stats.Queued, filename, job.ID))
}

func hasMedia(msg *tgbotapi.Message) bool {
	return msg.Voice != nil || msg.Audio != nil || msg.Video != nil ||
		msg.VideoNote != nil || msg.Document != nil
}

func extractMedia(msg *tgbotapi.Message) (model.InputKind, string, string, int64) {
	switch {
	case msg.Voice != nil:
		return model.InputKindVoice, msg.Voice.FileID, "voice.ogg", int64(msg.Voice.FileSize)
	case msg.Audio != nil:
		name := msg.Audio.FileName
		if name == "" {
			name = "audio.mp3"
		}
		return model.InputKindAudioFile, msg.Audio.FileID, name, int64(msg.Audio.FileSize)
	case msg.Video != nil:
		return model.InputKindVideoFile, msg.Video.FileID, "video.mp4", int64(msg.Video.FileSize)
	case msg.VideoNote != nil:
		return model.InputKindVideoNote, msg.VideoNote.FileID, "video_note.mp4", int64(msg.VideoNote.FileSize)
	case msg.Document != nil:
		name := msg.Document.FileName
		if name == "" {
			name = "document.bin"
		}
		return model.InputKindDocument, msg.Document.FileID, name, int64(msg.Document.FileSize)
	}
	return "", "", "", 0
}

func renderSnapshot(s model.StatusSnapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔄 Queue status:\n")
	fmt.Fprintf(&sb, "📊 Queued: %d/%d, in flight: %d\n", s.QueueDepth, s.QueueCapacity, s.InFlight)
	fmt.Fprintf(&sb, "✅ Succeeded: %d\n", s.SucceededTotal)
	fmt.Fprintf(&sb, "❌ Failed: %d\n", s.FailedTotal)
	fmt.Fprintf(&sb, "🚫 Cancelled: %d\n", s.CancelledTotal)
	for _, p := range s.PerProvider {
		fmt.Fprintf(&sb, "⏱ %s: %d calls, avg %.0f ms, max %d ms\n",
			p.Provider, p.Calls, p.AvgLatencyMs, p.MaxLatencyMs)
	}
	return sb.String()
}

// ---- small send helpers ----

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return b.api.Send(c)
}

func (b *Bot) reply(chatID int64, replyTo int, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	if replyTo != 0 {
		m.ReplyToMessageID = replyTo
	}
	if _, err := b.api.Send(m); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("send failed")
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	if _, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		b.log.Debug().Err(err).Int64("chat", chatID).Msg("edit failed")
	}
}

func (b *Bot) delete(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Debug().Err(err).Int64("chat", chatID).Msg("delete failed")
	}
}
