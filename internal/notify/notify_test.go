package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/garnizeh/careerhub/internal/notify"
	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository/mock"
)

type fakeQueue struct {
	types    []string
	payloads []any
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	q.types = append(q.types, typ)
	q.payloads = append(q.payloads, payload)
	return int64(len(q.types)), nil
}

type fakePublisher struct {
	events []notify.Event
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, ev notify.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func TestCreate_DefaultsAndEnqueue(t *testing.T) {
	m := mock.NewMocks()
	q := &fakeQueue{}
	svc := notify.NewService(m.NotifyRepo, q, nil)

	n, err := svc.Create(context.Background(), &models.Notification{UserID: 7, Title: "Hello"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.ID == 0 || n.Type != models.NotificationSystem || n.Priority != models.PriorityNormal || n.Created == 0 {
		t.Fatalf("unexpected notification %#v", n)
	}
	if len(q.types) != 1 || q.types[0] != notify.PublishJobType {
		t.Fatalf("expected one publish job, got %v", q.types)
	}
	ev, ok := q.payloads[0].(notify.Event)
	if !ok || ev.ID != n.ID || ev.UserID != 7 {
		t.Fatalf("unexpected payload %#v", q.payloads[0])
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := notify.NewService(mock.NewMocks().NotifyRepo, nil, nil)
	for _, n := range []*models.Notification{nil, {Title: "x"}, {UserID: 1}} {
		if _, err := svc.Create(context.Background(), n); !errors.Is(err, notify.ErrInvalidNotification) {
			t.Fatalf("expected ErrInvalidNotification for %#v, got %v", n, err)
		}
	}
}

func TestCreate_EnqueueFailureStillStores(t *testing.T) {
	m := mock.NewMocks()
	svc := notify.NewService(m.NotifyRepo, &fakeQueue{err: errors.New("queue down")}, nil)
	if _, err := svc.NotifySystem(context.Background(), 3, "Maintenance", "Tonight", models.PriorityLow); err != nil {
		t.Fatalf("NotifySystem: %v", err)
	}
	if len(m.NotifyRepo.Created) != 1 || m.NotifyRepo.Created[0].Priority != models.PriorityLow {
		t.Fatalf("expected stored notification, got %#v", m.NotifyRepo.Created)
	}
}

func TestCreate_RepoError(t *testing.T) {
	m := mock.NewMocks()
	m.NotifyRepo.CreateErr = errors.New("disk full")
	q := &fakeQueue{}
	svc := notify.NewService(m.NotifyRepo, q, nil)
	if _, err := svc.NotifyNewMessage(context.Background(), 1, "Bob"); err == nil {
		t.Fatalf("expected error")
	}
	if len(q.types) != 0 {
		t.Fatalf("nothing should be enqueued when the insert fails")
	}
}

func TestHelpers(t *testing.T) {
	m := mock.NewMocks()
	svc := notify.NewService(m.NotifyRepo, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() (*models.Notification, error)
		typ      string
		priority string
		title    string
		contains string
	}{
		{"achievement", func() (*models.Notification, error) { return svc.NotifyAchievementUnlocked(ctx, 1, "Launchpad", 40) },
			models.NotificationAchievement, models.PriorityHigh, "Achievement Unlocked!", `You earned "Launchpad" and gained 40 XP!`},
		{"level up", func() (*models.Notification, error) { return svc.NotifyLevelUp(ctx, 1, 2, "") },
			models.NotificationSystem, models.PriorityHigh, "Level Up!", "You reached Level 2!"},
		{"level up with badge", func() (*models.Notification, error) { return svc.NotifyLevelUp(ctx, 1, 3, "Explorer") },
			models.NotificationSystem, models.PriorityHigh, "Level Up!", `earned the "Explorer" badge`},
		{"application", func() (*models.Notification, error) {
			return svc.NotifyApplicationUpdate(ctx, 1, "Go Dev", "interview")
		},
			models.NotificationApplicationUpdate, models.PriorityHigh, "Application Update", `"Go Dev" has been updated to: interview`},
		{"message", func() (*models.Notification, error) { return svc.NotifyNewMessage(ctx, 1, "Ana") },
			models.NotificationMessage, models.PriorityNormal, "New Message", "from Ana"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := tt.call()
			if err != nil {
				t.Fatalf("call: %v", err)
			}
			if n.Type != tt.typ || n.Priority != tt.priority || n.Title != tt.title {
				t.Fatalf("unexpected notification %#v", n)
			}
			if !strings.Contains(n.Message, tt.contains) {
				t.Fatalf("message %q does not contain %q", n.Message, tt.contains)
			}
		})
	}
}

func TestPublishPayload(t *testing.T) {
	pub := &fakePublisher{}
	body, _ := json.Marshal(notify.Event{ID: 4, UserID: 9, Title: "t"})
	if err := notify.PublishPayload(context.Background(), pub, body); err != nil {
		t.Fatalf("PublishPayload: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].UserID != 9 {
		t.Fatalf("unexpected events %#v", pub.events)
	}
	if err := notify.PublishPayload(context.Background(), pub, []byte(`{"id":1}`)); err == nil {
		t.Fatalf("expected error for event without user")
	}
	if err := notify.PublishPayload(context.Background(), pub, []byte(`nope`)); err == nil {
		t.Fatalf("expected decode error")
	}
	pub.err = errors.New("broker gone")
	if err := notify.PublishPayload(context.Background(), pub, body); err == nil {
		t.Fatalf("expected publish error to propagate")
	}
}

func TestRoutingKeyAndNoop(t *testing.T) {
	if got := notify.RoutingKey(42); got != "notifications.42" {
		t.Fatalf("RoutingKey = %s", got)
	}
	var p notify.Publisher = notify.NoopPublisher{}
	if err := p.Publish(context.Background(), notify.Event{}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
	if err := (notify.LogCodeSender{}).SendResetCode(context.Background(), "a@b.c", "123456"); err != nil {
		t.Fatalf("log sender: %v", err)
	}
}
