package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-stt-bot/internal/domain"
	"telegram-stt-bot/internal/domain/model"
	"telegram-stt-bot/internal/infra/metrics"
)

// SubmitRequest is what the transport hands over at admission. Source stays
// opaque to the queue and the pipeline.
type SubmitRequest struct {
	Source    model.SourceRef
	Kind      model.InputKind
	Filename  string
	SizeBytes int64
	Provider  string // empty selects the configured default
}

type QueueStats struct {
	Queued   int `json:"queued"`
	InFlight int `json:"in_flight"`
	Capacity int `json:"capacity"`
	Workers  int `json:"workers"`
}

// entry pairs a job with the synchronization the queue needs around it. The
// mutex arbitrates the single Queued->Cancelled race between Cancel and the
// dequeuing worker; past that point only the owning worker touches the job.
type entry struct {
	mu        sync.Mutex
	job       *model.Job
	cancelled atomic.Bool
	doneAt    time.Time
}

func (e *entry) snapshot() model.ReadJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.Snapshot()
}

// transition enters a new stage and resets the attempt counter.
func (e *entry) transition(state model.JobState) {
	e.mu.Lock()
	e.job.State = state
	e.job.StageStartedAt = time.Now()
	e.job.Attempt = 0
	e.mu.Unlock()
}

func (e *entry) bumpAttempt() int {
	e.mu.Lock()
	e.job.Attempt++
	a := e.job.Attempt
	e.mu.Unlock()
	return a
}

// Queue is the bounded admission queue feeding the worker pool. The buffered
// channel is the single synchronization point bounding in-flight work.
type Queue struct {
	ch        chan *entry
	capacity  int
	workers   int
	inFlight  atomic.Int64
	retention time.Duration

	mu    sync.Mutex
	index map[string]*entry

	defaultProvider string
	log             *zerolog.Logger
}

func NewQueue(capacity, workers int, retention time.Duration, defaultProvider string, log *zerolog.Logger) *Queue {
	if capacity <= 0 {
		capacity = 32
	}
	if workers <= 0 {
		workers = 2
	}
	return &Queue{
		ch:              make(chan *entry, capacity),
		capacity:        capacity,
		workers:         workers,
		retention:       retention,
		index:           make(map[string]*entry),
		defaultProvider: defaultProvider,
		log:             log,
	}
}

// Submit admits a job or rejects it immediately with domain.ErrQueueFull.
// The provider is fixed here and never changes for the life of the job.
func (q *Queue) Submit(req SubmitRequest) (*model.Job, error) {
	provider := req.Provider
	if provider == "" {
		provider = q.defaultProvider
	}
	job := &model.Job{
		ID:        ulid.Make().String(),
		Source:    req.Source,
		Kind:      req.Kind,
		Filename:  req.Filename,
		SizeBytes: req.SizeBytes,
		State:     model.JobStateQueued,
		Provider:  provider,
		CreatedAt: time.Now(),
	}
	e := &entry{job: job}

	q.mu.Lock()
	q.evictStaleLocked()
	q.index[job.ID] = e
	q.mu.Unlock()

	select {
	case q.ch <- e:
		metrics.SetQueueDepth(len(q.ch))
		q.log.Info().Str("job_id", job.ID).Str("provider", provider).
			Str("kind", string(req.Kind)).Int64("bytes", req.SizeBytes).Msg("job admitted")
		return job, nil
	default:
		q.mu.Lock()
		delete(q.index, job.ID)
		q.mu.Unlock()
		metrics.IncAdmissionReject()
		q.log.Warn().Str("kind", string(req.Kind)).Msg("admission rejected, queue full")
		return nil, domain.ErrQueueFull
	}
}

// Cancel requests cancellation. A still-queued job becomes Cancelled
// synchronously and no stage ever starts; an in-flight job gets a cooperative
// flag that the pipeline checks between stages. Returns false for unknown or
// already-terminal jobs.
func (q *Queue) Cancel(jobID string) bool {
	q.mu.Lock()
	e, ok := q.index[jobID]
	q.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.job.State.Terminal():
		return false
	case e.job.State == model.JobStateQueued:
		e.job.State = model.JobStateCancelled
		e.doneAt = time.Now()
		q.log.Info().Str("job_id", jobID).Msg("queued job cancelled")
		return true
	default:
		e.cancelled.Store(true)
		q.log.Info().Str("job_id", jobID).Str("state", string(e.job.State)).Msg("cancellation requested")
		return true
	}
}

// Get returns a read snapshot of a tracked job.
func (q *Queue) Get(jobID string) (model.ReadJob, bool) {
	q.mu.Lock()
	e, ok := q.index[jobID]
	q.mu.Unlock()
	if !ok {
		return model.ReadJob{}, false
	}
	return e.snapshot(), true
}

func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Queued:   len(q.ch),
		InFlight: int(q.inFlight.Load()),
		Capacity: q.capacity,
		Workers:  q.workers,
	}
}

// claim transitions a dequeued entry into the worker's ownership. It returns
// false when the job was cancelled while still queued.
func (q *Queue) claim(e *entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.State != model.JobStateQueued {
		return false
	}
	e.job.State = model.JobStateFetching
	e.job.StageStartedAt = time.Now()
	return true
}

// finish records a terminal transition and starts the retention clock.
func (q *Queue) finish(e *entry, state model.JobState, lastError string) {
	e.mu.Lock()
	e.job.State = state
	e.job.LastError = lastError
	e.doneAt = time.Now()
	e.mu.Unlock()
}

func (q *Queue) evictStaleLocked() {
	if q.retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-q.retention)
	for id, e := range q.index {
		e.mu.Lock()
		stale := e.job.State.Terminal() && !e.doneAt.IsZero() && e.doneAt.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(q.index, id)
		}
	}
}
