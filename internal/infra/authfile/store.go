package authfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"telegram-stt-bot/internal/domain/ports/repository"
)

var _ repository.AuthorizedUsers = (*Store)(nil)

// Store persists password-authorized users in a JSON file. The default
// backend when no redis is configured.
type Store struct {
	path string
	log  *zerolog.Logger

	mu    sync.Mutex
	users map[int64]struct{}
}

type fileFormat struct {
	Users []int64 `json:"users"`
}

func NewStore(path string, log *zerolog.Logger) (*Store, error) {
	s := &Store{path: path, log: log, users: make(map[int64]struct{})}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("authfile: read %s: %w", s.path, err)
	}
	var ff fileFormat
	if err := json.Unmarshal(b, &ff); err != nil {
		// A corrupt file should not brick the bot; start over.
		s.log.Warn().Err(err).Str("path", s.path).Msg("could not parse authorized users file, starting empty")
		return nil
	}
	for _, id := range ff.Users {
		s.users[id] = struct{}{}
	}
	s.log.Info().Int("count", len(s.users)).Msg("loaded authorized users")
	return nil
}

func (s *Store) IsAuthorized(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[userID]
	return ok, nil
}

func (s *Store) Authorize(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; ok {
		return nil
	}
	s.users[userID] = struct{}{}
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("authfile: mkdir: %w", err)
	}
	ff := fileFormat{Users: make([]int64, 0, len(s.users))}
	for id := range s.users {
		ff.Users = append(ff.Users, id)
	}
	b, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("authfile: write: %w", err)
	}
	return os.Rename(tmp, s.path)
}
