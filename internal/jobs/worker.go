package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultLease is how long a job may stay running before it is requeued.
const DefaultLease = 10 * time.Minute

type WorkerPool struct {
	repo        *Repository
	handlers    map[string]Handler
	logger      *slog.Logger
	workerCount int
	idle        time.Duration
	lease       time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewWorkerPool(repo *Repository, handlers map[string]Handler, logger *slog.Logger, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{repo: repo, handlers: handlers, logger: logger, workerCount: workerCount, idle: 500 * time.Millisecond, lease: DefaultLease, stop: make(chan struct{})}
}

// SetLease changes the running-job lease. Call it before Start.
func (p *WorkerPool) SetLease(d time.Duration) {
	if d > 0 {
		p.lease = d
	}
}

// Start launches the worker goroutines and the stale job reaper
func (p *WorkerPool) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.reaper(ctx)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// wait sleeps for d unless the pool is stopping; it reports whether to keep going.
func (p *WorkerPool) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.stop:
		return false
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// reaper requeues jobs whose worker died, once at start and then every half lease.
func (p *WorkerPool) reaper(ctx context.Context) {
	defer p.wg.Done()
	for {
		n, err := p.repo.RequeueStale(ctx, p.lease)
		switch {
		case err != nil && ctx.Err() == nil:
			p.logger.Error("requeue stale jobs", "err", err)
		case n > 0:
			p.logger.Warn("requeued stale jobs", "count", n, "lease", p.lease)
		}
		if !p.wait(ctx, p.lease/2) {
			return
		}
	}
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", "id", id)
			return
		default:
		}

		job, err := p.repo.FetchNext(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Error("fetch job", "err", err)
			}
			if !p.wait(ctx, time.Second) {
				return
			}
			continue
		}
		if job == nil {
			if !p.wait(ctx, p.idle) {
				return
			}
			continue
		}
		if err := p.Process(ctx, job); err != nil {
			p.logger.Warn("job not completed", "id", job.ID, "type", job.Type, "err", err)
		}
	}
}

// Process runs one claimed job and records its outcome. Outcomes are written
// even when ctx is canceled so a job never stays running. A job interrupted
// by cancellation goes back to retry without spending an attempt. The returned
// error wraps ErrMaxAttempts or ErrNoHandler when the job was dead-lettered.
func (p *WorkerPool) Process(ctx context.Context, job *Job) error {
	store := context.WithoutCancel(ctx)

	h, ok := p.handlers[job.Type]
	if !ok {
		job.Status = StatusFailed
		job.LastError = ErrNoHandler.Error()
		if err := p.repo.MoveToDeadLetter(store, job); err != nil {
			return fmt.Errorf("dead-letter job %d: %w", job.ID, err)
		}
		return fmt.Errorf("job %d of type %s: %w", job.ID, job.Type, ErrNoHandler)
	}

	err := h(ctx, job)
	if err == nil {
		job.Status = StatusDone
		if upErr := p.repo.UpdateJob(store, job); upErr != nil {
			return fmt.Errorf("mark job %d done: %w", job.ID, upErr)
		}
		p.logger.Debug("job done", "id", job.ID, "type", job.Type)
		return nil
	}

	if ctx.Err() != nil {
		job.Status = StatusRetry
		job.NextTryAt = nil
		job.LastError = err.Error()
		if upErr := p.repo.UpdateJob(store, job); upErr != nil {
			return fmt.Errorf("release interrupted job %d: %w", job.ID, upErr)
		}
		return fmt.Errorf("job %d interrupted: %w", job.ID, err)
	}

	job.Attempts++
	job.LastError = err.Error()
	if job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		if mvErr := p.repo.MoveToDeadLetter(store, job); mvErr != nil {
			return fmt.Errorf("dead-letter job %d: %w", job.ID, mvErr)
		}
		return fmt.Errorf("job %d after %d attempts: %w: %w", job.ID, job.Attempts, ErrMaxAttempts, err)
	}

	t := time.Now().Add(BackoffDuration(job.Attempts))
	job.NextTryAt = &t
	job.Status = StatusRetry
	if upErr := p.repo.UpdateJob(store, job); upErr != nil {
		return fmt.Errorf("update job %d for retry: %w", job.ID, upErr)
	}
	p.logger.Info("job scheduled for retry", "id", job.ID, "type", job.Type, "attempt", job.Attempts, "next", t)
	return nil
}

// Enqueue convenience helper that creates a job and persists it
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	j := &Job{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()}
	return p.repo.Enqueue(ctx, j)
}
