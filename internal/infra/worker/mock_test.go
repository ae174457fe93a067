package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"telegram-stt-bot/internal/domain/model"
	"telegram-stt-bot/internal/domain/ports/adapter"
)

// ---- in-memory fakes for the pipeline collaborators ----

type fakeFetcher struct {
	calls atomic.Int32
	fn    func(attempt int) error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ model.SourceRef, destDir string) (string, error) {
	n := int(f.calls.Add(1))
	if f.fn != nil {
		if err := f.fn(n); err != nil {
			return "", err
		}
	}
	path := filepath.Join(destDir, "source_test.ogg")
	if err := os.WriteFile(path, []byte("not really audio"), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

type fakeConverter struct {
	calls atomic.Int32
	fn    func(attempt int) error
}

func (c *fakeConverter) Convert(_ context.Context, inputPath string, spec adapter.TargetSpec) (string, error) {
	n := int(c.calls.Add(1))
	if c.fn != nil {
		if err := c.fn(n); err != nil {
			return "", err
		}
	}
	out := filepath.Join(filepath.Dir(inputPath), "converted."+spec.Container)
	if err := os.WriteFile(out, []byte("converted"), 0o600); err != nil {
		return "", err
	}
	return out, nil
}

type fakeTranscriber struct {
	name  string
	calls atomic.Int32
	fn    func(attempt int) error
	text  string
}

func (p *fakeTranscriber) Name() string { return p.name }

func (p *fakeTranscriber) InputSpec() adapter.TargetSpec {
	return adapter.TargetSpec{Codec: "pcm_s16le", Container: "wav", SampleRate: 16000, Channels: 1}
}

func (p *fakeTranscriber) Transcribe(_ context.Context, _ adapter.TranscribeRequest) (*adapter.Transcript, error) {
	n := int(p.calls.Add(1))
	if p.fn != nil {
		if err := p.fn(n); err != nil {
			return nil, err
		}
	}
	return &adapter.Transcript{Text: p.text}, nil
}

type fakeResolver struct{ t adapter.Transcriber }

func (r *fakeResolver) Resolve(string) (adapter.Transcriber, error) { return r.t, nil }

type fakeSink struct {
	mu          sync.Mutex
	transcripts []string
	failures    []string
	progress    []string
	deliverErr  func(attempt int) error
	deliverN    int
}

func (s *fakeSink) DeliverTranscript(_ context.Context, _ model.SourceRef, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliverN++
	if s.deliverErr != nil {
		if err := s.deliverErr(s.deliverN); err != nil {
			return err
		}
	}
	s.transcripts = append(s.transcripts, text)
	return nil
}

func (s *fakeSink) DeliverFailure(_ context.Context, _ model.SourceRef, userMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, userMsg)
	return nil
}

func (s *fakeSink) Progress(_ context.Context, _ model.SourceRef, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, note)
}

func (s *fakeSink) snapshot() (transcripts, failures, progress []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.transcripts...),
		append([]string(nil), s.failures...),
		append([]string(nil), s.progress...)
}

type fakeWorkspace struct {
	dir      string
	once     sync.Once
	releases atomic.Int32
	removals atomic.Int32
}

func (w *fakeWorkspace) Path() string { return w.dir }

func (w *fakeWorkspace) Release() error {
	w.releases.Add(1)
	w.once.Do(func() {
		w.removals.Add(1)
		os.RemoveAll(w.dir)
	})
	return nil
}

type fakeWorkspaceManager struct {
	root     string
	err      error
	mu       sync.Mutex
	acquired []*fakeWorkspace
}

func (m *fakeWorkspaceManager) Acquire(jobID string) (adapter.Workspace, error) {
	if m.err != nil {
		return nil, m.err
	}
	dir := filepath.Join(m.root, "job-"+jobID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	ws := &fakeWorkspace{dir: dir}
	m.mu.Lock()
	m.acquired = append(m.acquired, ws)
	m.mu.Unlock()
	return ws, nil
}

func (m *fakeWorkspaceManager) last() *fakeWorkspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.acquired) == 0 {
		return nil
	}
	return m.acquired[len(m.acquired)-1]
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
