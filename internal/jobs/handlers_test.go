package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/garnizeh/careerhub/internal/jobs"
	"github.com/garnizeh/careerhub/internal/notify"
	"github.com/garnizeh/careerhub/internal/repository/sqlite"
	"github.com/garnizeh/careerhub/internal/storage"
	"github.com/garnizeh/careerhub/pkg/models"
)

type fakeReviewer struct {
	got string
	err error
}

func (f *fakeReviewer) ReviewCV(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (string, error) {
	f.got = cvJSON
	return "Strong CV. Add metrics.", f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func setupResume(t *testing.T) (*sqlite.SQLiteRepo, int64) {
	t.Helper()
	repo := sqlite.New(openDB(t), nil)
	ctx := context.Background()
	uid, err := repo.CreateUser(ctx, &models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	rid, err := repo.CreateResume(ctx, &models.Resume{UserID: uid, Title: "Main", Data: json.RawMessage(`{"skills":["Go"]}`)})
	if err != nil {
		t.Fatalf("CreateResume: %v", err)
	}
	return repo, rid
}

func job(t *testing.T, typ string, payload any) *jobs.Job {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &jobs.Job{ID: 1, Type: typ, Payload: b}
}

func TestHandlers_OnlyConfigured(t *testing.T) {
	h := jobs.Handlers(jobs.Deps{Publisher: notify.NoopPublisher{}})
	if _, ok := h[jobs.TypeNotificationPublish]; !ok || len(h) != 1 {
		t.Fatalf("unexpected handler set %v", h)
	}
}

func TestExtractResumeHandler(t *testing.T) {
	repo, rid := setupResume(t)
	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	body := "Ana\nGo developer"
	if err := store.Put(ctx, "resumes/1/cv.txt", strings.NewReader(body), int64(len(body)), "text/plain"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.AttachResumeFile(ctx, rid, "resumes/1/cv.txt", "cv.txt", "text/plain", int64(len(body))); err != nil {
		t.Fatalf("AttachResumeFile: %v", err)
	}

	h := jobs.Handlers(jobs.Deps{Resumes: repo, Store: store})
	if err := h[jobs.TypeResumeExtract](ctx, job(t, jobs.TypeResumeExtract, jobs.ResumePayload{ResumeID: rid})); err != nil {
		t.Fatalf("extract: %v", err)
	}
	got, _ := repo.GetResume(ctx, rid)
	if got.ExtractedText != body {
		t.Fatalf("unexpected extracted text %q", got.ExtractedText)
	}

	// legacy .doc has no extractor and must not be retried
	if err := repo.AttachResumeFile(ctx, rid, "resumes/1/cv.txt", "cv.doc", "application/msword", 1); err != nil {
		t.Fatalf("AttachResumeFile: %v", err)
	}
	if err := h[jobs.TypeResumeExtract](ctx, job(t, jobs.TypeResumeExtract, jobs.ResumePayload{ResumeID: rid})); err != nil {
		t.Fatalf("unsupported type should be skipped, got %v", err)
	}

	if err := store.Delete(ctx, "resumes/1/cv.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	err = h[jobs.TypeResumeExtract](ctx, job(t, jobs.TypeResumeExtract, jobs.ResumePayload{ResumeID: rid}))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected storage.ErrNotFound, got %v", err)
	}
	if err := h[jobs.TypeResumeExtract](ctx, &jobs.Job{Payload: []byte(`{}`)}); err == nil {
		t.Fatalf("expected error for payload without resume id")
	}
}

func TestReviewResumeHandler(t *testing.T) {
	repo, rid := setupResume(t)
	ctx := context.Background()
	rev := &fakeReviewer{}
	h := jobs.Handlers(jobs.Deps{Resumes: repo, Reviewer: rev})

	if err := h[jobs.TypeResumeReview](ctx, job(t, jobs.TypeResumeReview, jobs.ResumePayload{ResumeID: rid, Temperature: 0.2})); err != nil {
		t.Fatalf("review: %v", err)
	}
	got, _ := repo.GetResume(ctx, rid)
	if got.Review != "Strong CV. Add metrics." || got.LastReviewedAt == nil {
		t.Fatalf("review not stored: %#v", got)
	}
	if rev.got != `{"skills":["Go"]}` {
		t.Fatalf("unexpected cv sent to reviewer %s", rev.got)
	}

	rev.err = errors.New("gradio down")
	if err := h[jobs.TypeResumeReview](ctx, job(t, jobs.TypeResumeReview, jobs.ResumePayload{ResumeID: rid})); err == nil {
		t.Fatalf("expected reviewer error to surface for retry")
	}
	if err := h[jobs.TypeResumeReview](ctx, job(t, jobs.TypeResumeReview, jobs.ResumePayload{ResumeID: 999})); err != nil {
		t.Fatalf("missing resume should be skipped, got %v", err)
	}
}

func TestPublishHandlerThroughPool(t *testing.T) {
	repo := setupQueue(t)
	pub := &recordingPublisher{}
	pool := startPool(t, repo, jobs.Handlers(jobs.Deps{Publisher: pub}))

	ev := notify.Event{ID: 7, UserID: 3, Type: models.NotificationSystem, Title: "hi"}
	id, err := pool.Enqueue(context.Background(), jobs.TypeNotificationPublish, ev, 50, 3)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitDone(t, repo, id)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 || pub.events[0].UserID != 3 || pub.events[0].Title != "hi" {
		t.Fatalf("unexpected published events %#v", pub.events)
	}
}
