package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"telegram-stt-bot/internal/infra/metrics"
)

// Pool runs a fixed number of workers, each driving one job end to end
// through the pipeline. The queue's channel provides FIFO hand-off and the
// pool size bounds concurrent jobs.
type Pool struct {
	queue    *Queue
	pipeline *Pipeline
	log      *zerolog.Logger

	wg   sync.WaitGroup
	quit chan struct{}
}

func NewPool(queue *Queue, pipeline *Pipeline, log *zerolog.Logger) *Pool {
	return &Pool{queue: queue, pipeline: pipeline, log: log, quit: make(chan struct{})}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.queue.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case e := <-p.queue.ch:
					metrics.SetQueueDepth(len(p.queue.ch))
					p.process(ctx, id, e)
				}
			}
		}(i + 1)
	}
	p.log.Info().Int("workers", p.queue.workers).Int("capacity", p.queue.capacity).Msg("worker pool started")
}

// Stop waits for in-flight jobs to finish. New dequeues stop immediately.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) process(ctx context.Context, workerID int, e *entry) {
	if !p.queue.claim(e) {
		// cancelled while queued; nothing ever started, nothing to release
		p.pipeline.reportCancelled(ctx, e)
		return
	}

	n := p.queue.inFlight.Add(1)
	metrics.SetInFlight(int(n))
	defer func() {
		metrics.SetInFlight(int(p.queue.inFlight.Add(-1)))
	}()

	log := p.log.With().Int("worker", workerID).Str("job_id", e.job.ID).Logger()
	p.pipeline.Run(ctx, &log, e)
}
