package service

import (
	"context"
	"sync"

	"issuemirror/internal/platform/logger"
	"issuemirror/internal/services/mirror/domain"

	"github.com/google/uuid"
)

// Queue is an in-process fire-and-forget sync queue with per-repo
// coalescing: a repository that is already queued or running is not
// enqueued again, so bursts of stale reads cost one remote walk
type Queue struct {
	log     logger.Logger
	runner  domain.SyncPort
	jobs    chan domain.RepoRef
	workers int

	mu      sync.Mutex
	pending map[string]bool

	wg      sync.WaitGroup
	started bool
	closed  bool
}

// NewQueue builds a queue with the given worker count and buffer depth
func NewQueue(log logger.Logger, runner domain.SyncPort, workers, depth int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if depth <= 0 {
		depth = 64
	}
	return &Queue{
		log:     log.With().Str("component", "sync_queue").Logger(),
		runner:  runner,
		jobs:    make(chan domain.RepoRef, depth),
		workers: workers,
		pending: make(map[string]bool),
	}
}

// Start launches the worker pool, safe to call once
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.log.Info().Int("workers", q.workers).Msg("sync queue started")
}

// Enqueue submits a repository for background sync.
// Returns false when coalesced away or the buffer is full, never blocks
func (q *Queue) Enqueue(r domain.RepoRef) bool {
	if r.Zero() {
		return false
	}
	slug := r.Slug()

	q.mu.Lock()
	if q.closed || q.pending[slug] {
		q.mu.Unlock()
		return false
	}
	q.pending[slug] = true
	q.mu.Unlock()

	select {
	case q.jobs <- r:
		return true
	default:
		// buffer full, drop the request and let the next stale read retry
		q.mu.Lock()
		delete(q.pending, slug)
		q.mu.Unlock()
		q.log.Warn().Str("repo", slug).Msg("sync queue full, dropping request")
		return false
	}
}

// Close stops intake and waits for in-flight runs to finish
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.jobs)
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for r := range q.jobs {
		select {
		case <-ctx.Done():
			q.release(r)
			continue
		default:
		}

		jobLog := q.log.With().
			Int("worker", id).
			Str("job_id", uuid.NewString()).
			Str("repo", r.Slug()).
			Logger()

		if err := q.runner.SyncRepository(ctx, r); err != nil {
			// stale-read triggered syncs fail silently from the caller's
			// perspective, the next read retries
			jobLog.Error().Err(err).Msg("background sync failed")
		}
		q.release(r)
	}
}

func (q *Queue) release(r domain.RepoRef) {
	q.mu.Lock()
	delete(q.pending, r.Slug())
	q.mu.Unlock()
}
