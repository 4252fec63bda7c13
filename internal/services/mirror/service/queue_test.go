package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"issuemirror/internal/services/mirror/domain"

	"github.com/rs/zerolog"
)

// blockingRunner parks each sync until released so tests can observe the
// queue while a job is in flight
type blockingRunner struct {
	started chan domain.RepoRef
	release chan struct{}

	mu   sync.Mutex
	runs []domain.RepoRef
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan domain.RepoRef, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingRunner) SyncRepository(_ context.Context, r domain.RepoRef) error {
	b.started <- r
	<-b.release
	b.mu.Lock()
	b.runs = append(b.runs, r)
	b.mu.Unlock()
	return nil
}

func (b *blockingRunner) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.runs)
}

func TestQueueRunsJobs(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner()
	close(runner.release) // nothing blocks in this test

	q := NewQueue(zerolog.Nop(), runner, 2, 8)
	q.Start(context.Background())

	if !q.Enqueue(domain.RepoRef{Owner: "octo", Name: "hello"}) {
		t.Fatal("enqueue into empty queue must succeed")
	}
	q.Close()

	if runner.count() != 1 {
		t.Fatalf("runs=%d want 1", runner.count())
	}
}

func TestQueueCoalescesWhileRunning(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner()
	q := NewQueue(zerolog.Nop(), runner, 1, 8)
	q.Start(context.Background())

	r := domain.RepoRef{Owner: "octo", Name: "hello"}
	if !q.Enqueue(r) {
		t.Fatal("first enqueue must succeed")
	}

	// wait until the worker picked the job up, then try again while running
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never started the job")
	}
	if q.Enqueue(r) {
		t.Fatal("enqueue while running must coalesce to false")
	}

	// a different repo is not affected by the coalescing
	other := domain.RepoRef{Owner: "octo", Name: "world"}
	if !q.Enqueue(other) {
		t.Fatal("unrelated repo must enqueue")
	}

	close(runner.release)
	q.Close()

	if runner.count() != 2 {
		t.Fatalf("runs=%d want 2", runner.count())
	}

	// after the run completed the repo can be enqueued again, the queue is
	// closed though so intake reports false
	if q.Enqueue(r) {
		t.Fatal("enqueue after close must report false")
	}
}

func TestQueueFullDrops(t *testing.T) {
	t.Parallel()

	runner := newBlockingRunner()
	defer close(runner.release)

	// never started, so the buffer is the only capacity
	q := NewQueue(zerolog.Nop(), runner, 1, 1)

	a := domain.RepoRef{Owner: "octo", Name: "a"}
	b := domain.RepoRef{Owner: "octo", Name: "b"}

	if !q.Enqueue(a) {
		t.Fatal("first enqueue fills the buffer")
	}
	if q.Enqueue(b) {
		t.Fatal("full buffer must drop, not block")
	}
	// the dropped repo was released from the pending set and can retry
	// once capacity exists, here it is still full so it drops again
	if q.Enqueue(b) {
		t.Fatal("still full, still dropping")
	}
}

func TestQueueIgnoresZeroRef(t *testing.T) {
	t.Parallel()

	q := NewQueue(zerolog.Nop(), newBlockingRunner(), 1, 1)
	if q.Enqueue(domain.RepoRef{}) {
		t.Fatal("zero ref must not enqueue")
	}
}

func TestQueueCloseIdempotent(t *testing.T) {
	t.Parallel()

	q := NewQueue(zerolog.Nop(), newBlockingRunner(), 1, 1)
	q.Start(context.Background())
	q.Close()
	q.Close()
}
