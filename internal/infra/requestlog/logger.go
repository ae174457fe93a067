package requestlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger appends one line per transcription request to an audit file:
// timestamp, user id, username, payload size. Disabled when path is empty.
type Logger struct {
	path string
	log  *zerolog.Logger
	mu   sync.Mutex
}

func New(path string, log *zerolog.Logger) *Logger {
	return &Logger{path: path, log: log}
}

func (l *Logger) Enabled() bool { return l != nil && l.path != "" }

func (l *Logger) LogRequest(userID int64, username string, sizeBytes int64) {
	if !l.Enabled() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		l.log.Error().Err(err).Msg("request log: mkdir failed")
		return
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		l.log.Error().Err(err).Msg("request log: open failed")
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s, %d, %s, %d\n",
		time.Now().UTC().Format("2006-01-02-15-04-05"), userID, username, sizeBytes)
	if _, err := f.WriteString(line); err != nil {
		l.log.Error().Err(err).Msg("request log: write failed")
	}
}
