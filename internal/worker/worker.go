package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"viralforge/internal/models"
	"viralforge/internal/storage"
)

// Runner executes one claimed job to a terminal state. It never returns
// before the job record is terminal.
type Runner interface {
	Run(ctx context.Context, job *models.VideoJob)
}

// Pool polls the queue with N workers. Each worker owns one job at a time
// and runs its stages sequentially; parallelism is across jobs only. A job
// that fails stays failed — there is no automatic retry.
type Pool struct {
	log      zerolog.Logger
	repo     *storage.JobRepository
	runner   Runner
	size     int
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewPool creates a pool of size workers polling at interval.
func NewPool(log zerolog.Logger, repo *storage.JobRepository, runner Runner, size int, interval time.Duration) *Pool {
	if size < 1 {
		size = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Pool{
		log:      log,
		repo:     repo,
		runner:   runner,
		size:     size,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the workers. They run until Stop or ctx cancellation.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.log.Info().Int("workers", p.size).Dur("interval", p.interval).Msg("worker pool started")
}

// Stop waits for in-flight jobs to reach a terminal state before
// returning.
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
	p.log.Info().Msg("worker pool stopped")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.With().Int("worker", id).Logger()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.processNext(ctx, log)
		}
	}
}

// processNext claims at most one queued job and drains the queue until
// empty so a burst doesn't wait a tick per job.
func (p *Pool) processNext(ctx context.Context, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		default:
		}

		job, err := p.repo.GetNextQueued(ctx)
		if err != nil {
			log.Error().Err(err).Msg("claim next job")
			return
		}
		if job == nil {
			return
		}

		log.Info().Str("job_id", job.ID).Str("input", job.InputReference).Msg("job claimed")
		p.runner.Run(ctx, job)
	}
}
