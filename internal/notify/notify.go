// Package notify creates in-app notifications and fans them out to the
// message broker through the background queue.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

// PublishJobType is the queue job that forwards a created notification to the broker.
const PublishJobType = "notification.publish"

const publishMaxAttempts = 5

var ErrInvalidNotification = errors.New("notification requires a user and a title")

// Enqueuer is the part of the worker pool the service needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

// Event is the broker message for a created notification.
type Event struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	Type      string          `json:"type"`
	Priority  string          `json:"priority"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Link      string          `json:"link,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt int64           `json:"createdAt"`
}

func EventFrom(n *models.Notification) Event {
	return Event{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Priority:  n.Priority,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Metadata:  n.Metadata,
		CreatedAt: n.Created,
	}
}

type Service struct {
	repo   repository.NotificationRepo
	queue  Enqueuer
	logger *slog.Logger
}

// NewService wires the store and the optional queue. A nil queue keeps
// notifications in-app only.
func NewService(repo repository.NotificationRepo, queue Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, queue: queue, logger: logger}
}

// Create stores the notification and schedules its broker publication.
// A failed enqueue is logged; the stored notification is still returned.
func (s *Service) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n == nil || n.UserID == 0 || n.Title == "" {
		return nil, ErrInvalidNotification
	}
	if n.Type == "" {
		n.Type = models.NotificationSystem
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}
	if n.Created == 0 {
		n.Created = time.Now().UnixMilli()
	}

	id, err := s.repo.CreateNotification(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	n.ID = id

	if s.queue != nil {
		if _, err := s.queue.Enqueue(ctx, PublishJobType, EventFrom(n), 50, publishMaxAttempts); err != nil {
			s.logger.Warn("enqueue notification publish", "notification_id", id, "err", err)
		}
	}
	s.logger.Debug("notification created", "notification_id", id, "user_id", n.UserID, "type", n.Type)
	return n, nil
}

func (s *Service) NotifyAchievementUnlocked(ctx context.Context, userID int64, achievementTitle string, xpReward int) (*models.Notification, error) {
	meta, _ := json.Marshal(map[string]any{"achievement": achievementTitle, "xpReward": xpReward})
	return s.Create(ctx, &models.Notification{
		UserID:   userID,
		Type:     models.NotificationAchievement,
		Priority: models.PriorityHigh,
		Title:    "Achievement Unlocked!",
		Message:  fmt.Sprintf("You earned %q and gained %d XP!", achievementTitle, xpReward),
		Link:     "/profile#achievements",
		Metadata: meta,
	})
}

// NotifyLevelUp mentions the badge when one was awarded with the level.
func (s *Service) NotifyLevelUp(ctx context.Context, userID int64, newLevel int, badgeName string) (*models.Notification, error) {
	msg := fmt.Sprintf("Congratulations! You reached Level %d!", newLevel)
	if badgeName != "" {
		msg = fmt.Sprintf("Congratulations! You reached Level %d and earned the %q badge!", newLevel, badgeName)
	}
	meta, _ := json.Marshal(map[string]any{"level": newLevel, "badge": badgeName})
	return s.Create(ctx, &models.Notification{
		UserID:   userID,
		Type:     models.NotificationSystem,
		Priority: models.PriorityHigh,
		Title:    "Level Up!",
		Message:  msg,
		Link:     "/profile",
		Metadata: meta,
	})
}

func (s *Service) NotifyApplicationUpdate(ctx context.Context, userID int64, jobTitle, status string) (*models.Notification, error) {
	return s.Create(ctx, &models.Notification{
		UserID:   userID,
		Type:     models.NotificationApplicationUpdate,
		Priority: models.PriorityHigh,
		Title:    "Application Update",
		Message:  fmt.Sprintf("Your application for %q has been updated to: %s", jobTitle, status),
		Link:     "/applied-jobs",
	})
}

func (s *Service) NotifyNewMessage(ctx context.Context, userID int64, senderName string) (*models.Notification, error) {
	return s.Create(ctx, &models.Notification{
		UserID:   userID,
		Type:     models.NotificationMessage,
		Priority: models.PriorityNormal,
		Title:    "New Message",
		Message:  "You have a new message from " + senderName,
		Link:     "/messages",
	})
}

func (s *Service) NotifySystem(ctx context.Context, userID int64, title, message, priority string) (*models.Notification, error) {
	return s.Create(ctx, &models.Notification{
		UserID:   userID,
		Type:     models.NotificationSystem,
		Priority: priority,
		Title:    title,
		Message:  message,
	})
}
