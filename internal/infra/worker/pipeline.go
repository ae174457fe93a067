package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"telegram-stt-bot/internal/config"
	"telegram-stt-bot/internal/domain"
	"telegram-stt-bot/internal/domain/model"
	"telegram-stt-bot/internal/domain/ports/adapter"
	"telegram-stt-bot/internal/infra/metrics"
	"telegram-stt-bot/internal/infra/status"
)

// ProviderResolver resolves a job's assigned provider name to a Transcriber.
type ProviderResolver interface {
	Resolve(name string) (adapter.Transcriber, error)
}

// Pipeline drives one job through fetch, convert, transcribe and deliver.
// It owns per-job state, retry handling and resource cleanup; the queue owns
// admission and the pool owns scheduling.
type Pipeline struct {
	queue      *Queue
	fetcher    adapter.SourceFetcher
	converter  adapter.AudioConverter
	providers  ProviderResolver
	sink       adapter.ResultSink
	workspaces adapter.WorkspaceManager
	reporter   *status.Reporter
	cfg        config.PipelineConfig
	langHint   string
}

func NewPipeline(
	queue *Queue,
	fetcher adapter.SourceFetcher,
	converter adapter.AudioConverter,
	providers ProviderResolver,
	sink adapter.ResultSink,
	workspaces adapter.WorkspaceManager,
	reporter *status.Reporter,
	cfg config.PipelineConfig,
	langHint string,
) *Pipeline {
	return &Pipeline{
		queue:      queue,
		fetcher:    fetcher,
		converter:  converter,
		providers:  providers,
		sink:       sink,
		workspaces: workspaces,
		reporter:   reporter,
		cfg:        cfg,
		langHint:   langHint,
	}
}

// Run executes the job held by e. The caller (pool worker) is the job's sole
// owner; Cancel only ever touches the cooperative flag once the job left the
// Queued state.
func (p *Pipeline) Run(ctx context.Context, log *zerolog.Logger, e *entry) {
	start := time.Now()

	ws, err := p.workspaces.Acquire(e.job.ID)
	if err != nil {
		log.Error().Err(err).Msg("workspace acquisition failed")
		p.fail(ctx, log, e, model.JobStateFetching, err)
		return
	}
	// The working dir must be gone no later than the terminal transition,
	// whatever path gets us there. Release is idempotent.
	defer ws.Release()

	p.sink.Progress(ctx, e.job.Source, "⚙️ Processing...")

	transcript, stage, err := p.runStages(ctx, log, e, ws)
	ws.Release()
	switch {
	case errors.Is(err, domain.ErrCancelled):
		p.cancelInFlight(ctx, log, e)
	case err != nil:
		p.fail(ctx, log, e, stage, err)
	default:
		p.queue.finish(e, model.JobStateSucceeded, "")
		p.reporter.JobFinished(model.JobStateSucceeded)
		log.Info().Dur("total", time.Since(start)).Int("chars", len(transcript.Text)).Msg("job succeeded")
	}
}

func (p *Pipeline) runStages(ctx context.Context, log *zerolog.Logger, e *entry, ws adapter.Workspace) (*adapter.Transcript, model.JobState, error) {
	job := e.job

	var inputPath string
	err := p.runStage(ctx, log, e, model.JobStateFetching, p.cfg.FetchTimeout, func(sctx context.Context) error {
		path, ferr := p.fetcher.Fetch(sctx, job.Source, ws.Path())
		if ferr != nil {
			return ferr
		}
		inputPath = path
		return nil
	})
	if err != nil {
		return nil, model.JobStateFetching, err
	}

	// Converting requires a fetched file of nonzero size.
	if st, serr := os.Stat(inputPath); serr != nil || st.Size() == 0 {
		return nil, model.JobStateFetching, fmt.Errorf("fetched file empty: %w", domain.ErrFetchNotFound)
	}

	provider, err := p.providers.Resolve(job.Provider)
	if err != nil {
		return nil, model.JobStateConverting, err
	}
	spec := provider.InputSpec()

	var convertedPath string
	err = p.runStage(ctx, log, e, model.JobStateConverting, p.cfg.ConvertTimeout, func(sctx context.Context) error {
		path, cerr := p.converter.Convert(sctx, inputPath, spec)
		if cerr != nil {
			metrics.IncConversion(conversionOutcome(cerr))
			return cerr
		}
		metrics.IncConversion("ok")
		convertedPath = path
		return nil
	})
	if err != nil {
		return nil, model.JobStateConverting, err
	}

	var transcript *adapter.Transcript
	err = p.runStage(ctx, log, e, model.JobStateTranscribing, p.cfg.TranscribeTimeout, func(sctx context.Context) error {
		callStart := time.Now()
		t, terr := provider.Transcribe(sctx, adapter.TranscribeRequest{
			AudioPath:    convertedPath,
			MimeType:     spec.MimeType(),
			LanguageHint: p.langHint,
		})
		p.reporter.TranscriptionObserved(provider.Name(), time.Since(callStart), terr == nil)
		if terr != nil {
			if errors.Is(terr, domain.ErrRateLimited) {
				metrics.IncRateLimited(provider.Name())
			}
			return terr
		}
		transcript = t
		return nil
	})
	if err != nil {
		return nil, model.JobStateTranscribing, err
	}

	err = p.runStage(ctx, log, e, model.JobStateDelivering, p.cfg.DeliverTimeout, func(sctx context.Context) error {
		return p.sink.DeliverTranscript(sctx, job.Source, transcript.Text)
	})
	if err != nil {
		return nil, model.JobStateDelivering, err
	}
	return transcript, model.JobStateSucceeded, nil
}

// runStage performs one stage under its timeout with the retry policy:
// transient failures up to MaxAttempts with exponential backoff and jitter,
// fatal failures immediately. The attempt counter resets on stage entry.
// Cancellation is observed at stage boundaries and between retries, never
// mid-call; an in-flight external call runs to completion or its timeout.
func (p *Pipeline) runStage(ctx context.Context, log *zerolog.Logger, e *entry, state model.JobState, timeout time.Duration, fn func(ctx context.Context) error) error {
	if e.cancelled.Load() {
		return domain.ErrCancelled
	}
	e.transition(state)

	for {
		attempt := e.bumpAttempt()
		sctx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		err := fn(sctx)
		cancel()
		p.reporter.StageObserved(state, time.Since(start), err == nil)

		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		retryable := domain.Retryable(err)
		log.Warn().Err(err).Str("stage", string(state)).Int("attempt", attempt).
			Bool("retryable", retryable).Msg("stage attempt failed")

		if !retryable || attempt >= p.cfg.MaxAttempts {
			return err
		}

		delay := backoffDelay(p.cfg.BackoffBase, p.cfg.BackoffCap, attempt)
		if hint, ok := domain.RetryAfter(err); ok && hint > delay {
			delay = hint
		}
		if serr := sleepCtx(ctx, delay); serr != nil {
			return serr
		}
		if e.cancelled.Load() {
			return domain.ErrCancelled
		}
	}
}

func (p *Pipeline) fail(ctx context.Context, log *zerolog.Logger, e *entry, stage model.JobState, cause error) {
	p.queue.finish(e, model.JobStateFailed, cause.Error())
	p.reporter.JobFinished(model.JobStateFailed)
	log.Error().Err(cause).Str("stage", string(stage)).Msg("job failed")

	// Detached from the worker context so shutdown does not swallow the last
	// message to the requester.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.DeliverTimeout)
	defer cancel()
	if derr := p.sink.DeliverFailure(dctx, e.job.Source, domain.UserMessage(cause)); derr != nil {
		log.Error().Err(derr).Msg("failed to deliver failure notice")
	}
}

func (p *Pipeline) cancelInFlight(ctx context.Context, log *zerolog.Logger, e *entry) {
	p.queue.finish(e, model.JobStateCancelled, "")
	p.reporter.JobFinished(model.JobStateCancelled)
	log.Info().Msg("job cancelled")

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.DeliverTimeout)
	defer cancel()
	p.sink.Progress(dctx, e.job.Source, "Cancelled.")
}

// reportCancelled handles jobs cancelled while still queued: Cancel already
// set the terminal state, only accounting and the acknowledgment remain.
func (p *Pipeline) reportCancelled(ctx context.Context, e *entry) {
	p.reporter.JobFinished(model.JobStateCancelled)
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.DeliverTimeout)
	defer cancel()
	p.sink.Progress(dctx, e.job.Source, "Cancelled.")
}

func conversionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnsupportedInput):
		return "unsupported"
	case errors.Is(err, domain.ErrConversionTimeout):
		return "timeout"
	default:
		return "tool_failure"
	}
}
