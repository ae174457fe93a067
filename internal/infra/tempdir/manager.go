package tempdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-stt-bot/internal/domain"
	"telegram-stt-bot/internal/domain/ports/adapter"
)

const dirPrefix = "stt-job-"

// Manager hands out per-job working directories under a common root.
// No two jobs ever share a directory.
type Manager struct {
	root       string
	floorBytes int64
	log        *zerolog.Logger
}

func NewManager(root string, freeSpaceFloorMB int64, log *zerolog.Logger) (*Manager, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("tempdir: create root: %w", err)
	}
	return &Manager{root: root, floorBytes: freeSpaceFloorMB * 1024 * 1024, log: log}, nil
}

var _ adapter.WorkspaceManager = (*Manager)(nil)

// Acquire creates an exclusively-owned directory for one job. It fails with
// domain.ErrDiskPressure when the free-space floor would be violated.
func (m *Manager) Acquire(jobID string) (adapter.Workspace, error) {
	free, err := freeBytes(m.root)
	if err != nil {
		m.log.Warn().Err(err).Str("root", m.root).Msg("free-space probe failed, skipping floor check")
	} else if free < m.floorBytes {
		return nil, fmt.Errorf("tempdir: %d bytes free, floor %d: %w", free, m.floorBytes, domain.ErrDiskPressure)
	}

	// uuid suffix keeps the path unguessable even when job IDs leak into logs
	path := filepath.Join(m.root, dirPrefix+jobID+"-"+uuid.NewString()[:8])
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("tempdir: create %s: %w", path, err)
	}
	return &WorkingDir{path: path, log: m.log}, nil
}

// Sweep removes leftover job directories from a previous run. Called once at
// startup, before any job is admitted.
func (m *Manager) Sweep() int {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || len(e.Name()) < len(dirPrefix) || e.Name()[:len(dirPrefix)] != dirPrefix {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.root, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		m.log.Info().Int("removed", removed).Msg("swept orphaned working directories")
	}
	return removed
}

// WorkingDir is the ownership handle for one job's temp storage. Release is
// idempotent and removes the whole tree.
type WorkingDir struct {
	path string
	log  *zerolog.Logger
	once sync.Once
}

var _ adapter.Workspace = (*WorkingDir)(nil)

func (w *WorkingDir) Path() string { return w.path }

func (w *WorkingDir) Release() error {
	var err error
	w.once.Do(func() {
		err = os.RemoveAll(w.path)
		if err != nil {
			w.log.Error().Err(err).Str("dir", w.path).Msg("failed to remove working directory")
		}
	})
	return err
}

func freeBytes(path string) (int64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * st.Bsize, nil
}
