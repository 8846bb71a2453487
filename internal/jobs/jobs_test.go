package jobs_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	dbfs "github.com/garnizeh/careerhub/db"
	"github.com/garnizeh/careerhub/internal/db"
	"github.com/garnizeh/careerhub/internal/jobs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setupQueue(t *testing.T) *jobs.Repository {
	t.Helper()
	return jobs.NewRepository(openDB(t))
}

func openDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := db.New(ctx, "file:"+name+"?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestBackoffDuration(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{8, 256 * time.Second},
		{9, 5 * time.Minute},
		{40, 5 * time.Minute},
	}
	for _, tt := range tests {
		if got := jobs.BackoffDuration(tt.attempt); got != tt.want {
			t.Fatalf("BackoffDuration(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestFetchNextClaimsByPriority(t *testing.T) {
	repo := setupQueue(t)
	ctx := context.Background()

	low, err := repo.Enqueue(ctx, &jobs.Job{Type: "a", Payload: []byte(`{}`), Priority: 100})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	high, err := repo.Enqueue(ctx, &jobs.Job{Type: "b", Payload: []byte(`{}`), Priority: 10})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := repo.Enqueue(ctx, &jobs.Job{Type: "later", Payload: []byte(`{}`), ScheduledAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	first, err := repo.FetchNext(ctx)
	if err != nil || first == nil || first.ID != high {
		t.Fatalf("expected job %d first, got %#v, %v", high, first, err)
	}
	if first.Status != jobs.StatusRunning || first.MaxAttempts != 5 {
		t.Fatalf("unexpected claimed job %#v", first)
	}
	second, err := repo.FetchNext(ctx)
	if err != nil || second == nil || second.ID != low {
		t.Fatalf("expected job %d second, got %#v, %v", low, second, err)
	}
	none, err := repo.FetchNext(ctx)
	if err != nil || none != nil {
		t.Fatalf("expected no claimable job, got %#v, %v", none, err)
	}

	future := time.Now().Add(time.Minute)
	second.Status = jobs.StatusRetry
	second.Attempts = 1
	second.NextTryAt = &future
	second.LastError = "boom"
	if err := repo.UpdateJob(ctx, second); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if j, _ := repo.FetchNext(ctx); j != nil {
		t.Fatalf("retry must wait for next_try_at, got %#v", j)
	}
	got, err := repo.Get(ctx, low)
	if err != nil || got == nil || got.LastError != "boom" || got.NextTryAt == nil {
		t.Fatalf("unexpected stored job %#v, %v", got, err)
	}
}

func startPool(t *testing.T, repo *jobs.Repository, handlers map[string]jobs.Handler) *jobs.WorkerPool {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	pool := jobs.NewWorkerPool(repo, handlers, nil, 1)
	pool.Start(ctx)
	t.Cleanup(func() {
		pool.Stop()
		cancel()
	})
	return pool
}

func TestEnqueueAndProcess(t *testing.T) {
	repo := setupQueue(t)
	handled := make(chan string, 1)
	handlers := map[string]jobs.Handler{
		"test": func(ctx context.Context, j *jobs.Job) error {
			handled <- string(j.Payload)
			return nil
		},
	}
	pool := startPool(t, repo, handlers)

	id, err := pool.Enqueue(context.Background(), "test", map[string]string{"foo": "bar"}, 10, 3)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case p := <-handled:
		if p != `{"foo":"bar"}` {
			t.Fatalf("unexpected payload %s", p)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("handler was not called")
	}

	waitDone(t, repo, id)
}

func waitDone(t *testing.T, repo *jobs.Repository, id int64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		j, err := repo.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if j != nil && j.Status == jobs.StatusDone {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %d never reached done", id)
}

func waitDeadLetters(t *testing.T, repo *jobs.Repository, n int) []jobs.DeadLetter {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		dl, err := repo.ListDeadLetters(context.Background(), 10)
		if err != nil {
			t.Fatalf("ListDeadLetters: %v", err)
		}
		if len(dl) >= n {
			return dl
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected %d dead letters", n)
	return nil
}

func TestFailingJobIsDeadLettered(t *testing.T) {
	repo := setupQueue(t)
	handlers := map[string]jobs.Handler{
		"fail": func(ctx context.Context, j *jobs.Job) error { return errors.New("upstream down") },
	}
	pool := startPool(t, repo, handlers)

	id, err := pool.Enqueue(context.Background(), "fail", nil, 1, 1)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	dl := waitDeadLetters(t, repo, 1)
	if dl[0].JobID != id || dl[0].LastError != "upstream down" || dl[0].Attempts != 1 {
		t.Fatalf("unexpected dead letter %#v", dl[0])
	}
	if j, _ := repo.Get(context.Background(), id); j != nil {
		t.Fatalf("dead-lettered job should be removed from the queue")
	}
}

func TestUnknownTypeIsDeadLettered(t *testing.T) {
	repo := setupQueue(t)
	pool := startPool(t, repo, map[string]jobs.Handler{})

	if _, err := pool.Enqueue(context.Background(), "mystery", map[string]int{"n": 1}, 1, 3); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	dl := waitDeadLetters(t, repo, 1)
	if dl[0].Type != "mystery" || dl[0].LastError != "no handler" {
		t.Fatalf("unexpected dead letter %#v", dl[0])
	}
}

func TestFailingJobIsRetried(t *testing.T) {
	repo := setupQueue(t)
	handlers := map[string]jobs.Handler{
		"flaky": func(ctx context.Context, j *jobs.Job) error { return errors.New("try again") },
	}
	pool := startPool(t, repo, handlers)

	id, err := pool.Enqueue(context.Background(), "flaky", nil, 1, 5)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		j, _ := repo.Get(context.Background(), id)
		if j != nil && j.Status == jobs.StatusRetry {
			if j.Attempts != 1 || j.NextTryAt == nil || !j.NextTryAt.After(time.Now()) {
				t.Fatalf("unexpected retry state %#v", j)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job never scheduled for retry")
}

func TestStopIsIdempotent(t *testing.T) {
	repo := setupQueue(t)
	pool := jobs.NewWorkerPool(repo, nil, nil, 2)
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()
}

func TestProcessReturnsErrMaxAttempts(t *testing.T) {
	repo := setupQueue(t)
	ctx := context.Background()
	upstream := errors.New("upstream down")
	pool := jobs.NewWorkerPool(repo, map[string]jobs.Handler{
		"fail": func(ctx context.Context, j *jobs.Job) error { return upstream },
	}, nil, 1)

	if _, err := repo.Enqueue(ctx, &jobs.Job{Type: "fail", Payload: []byte(`{}`), MaxAttempts: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := repo.Enqueue(ctx, &jobs.Job{Type: "mystery", Payload: []byte(`{}`), Priority: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	j, _ := repo.FetchNext(ctx)
	err := pool.Process(ctx, j)
	if !errors.Is(err, jobs.ErrMaxAttempts) || !errors.Is(err, upstream) {
		t.Fatalf("expected ErrMaxAttempts wrapping the handler error, got %v", err)
	}
	j, _ = repo.FetchNext(ctx)
	if err := pool.Process(ctx, j); !errors.Is(err, jobs.ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
	if dl, _ := repo.ListDeadLetters(ctx, 10); len(dl) != 2 {
		t.Fatalf("expected 2 dead letters, got %d", len(dl))
	}
}

func TestCanceledPoolReleasesRunningJob(t *testing.T) {
	repo := setupQueue(t)
	started := make(chan struct{})
	handlers := map[string]jobs.Handler{
		"slow": func(ctx context.Context, j *jobs.Job) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	pool := jobs.NewWorkerPool(repo, handlers, nil, 1)
	pool.Start(ctx)

	id, err := pool.Enqueue(context.Background(), "slow", nil, 1, 3)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		cancel()
		pool.Stop()
		t.Fatalf("handler was not called")
	}
	cancel()
	pool.Stop()

	j, err := repo.Get(context.Background(), id)
	if err != nil || j == nil {
		t.Fatalf("Get: %#v, %v", j, err)
	}
	if j.Status != jobs.StatusRetry || j.Attempts != 0 || j.NextTryAt != nil {
		t.Fatalf("interrupted job not released: %#v", j)
	}
	again, err := repo.FetchNext(context.Background())
	if err != nil || again == nil || again.ID != id {
		t.Fatalf("released job not claimable: %#v, %v", again, err)
	}
}

func TestRequeueStale(t *testing.T) {
	repo := setupQueue(t)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, &jobs.Job{Type: "a", Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if j, _ := repo.FetchNext(ctx); j == nil || j.ID != id {
		t.Fatalf("expected to claim job %d", id)
	}

	n, err := repo.RequeueStale(ctx, time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("fresh claim requeued: %d, %v", n, err)
	}
	n, err = repo.RequeueStale(ctx, 0)
	if err != nil || n != 1 {
		t.Fatalf("RequeueStale = %d, %v", n, err)
	}
	j, _ := repo.Get(ctx, id)
	if j.Status != jobs.StatusRetry || j.Attempts != 1 || j.LastError != "lease expired" {
		t.Fatalf("unexpected requeued job %#v", j)
	}
	if again, _ := repo.FetchNext(ctx); again == nil || again.ID != id {
		t.Fatalf("requeued job not claimable")
	}
}

func TestPoolRequeuesOrphanedJobOnStart(t *testing.T) {
	repo := setupQueue(t)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, &jobs.Job{Type: "work", Payload: []byte(`{}`), MaxAttempts: 3})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// Claimed by a worker that died.
	if j, _ := repo.FetchNext(ctx); j == nil {
		t.Fatalf("expected to claim job")
	}

	done := make(chan struct{}, 1)
	pctx, cancel := context.WithCancel(ctx)
	pool := jobs.NewWorkerPool(repo, map[string]jobs.Handler{
		"work": func(ctx context.Context, j *jobs.Job) error {
			done <- struct{}{}
			return nil
		},
	}, nil, 1)
	pool.SetLease(50 * time.Millisecond)
	pool.Start(pctx)
	t.Cleanup(func() {
		pool.Stop()
		cancel()
	})

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("orphaned job was never rerun")
	}
	waitDone(t, repo, id)
}
