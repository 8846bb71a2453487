package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Job types handled by the worker pool.
const (
	TypeResumeExtract       = "resume.extract"
	TypeResumeReview        = "resume.review"
	TypeNotificationPublish = "notification.publish"
)

// Queue statuses.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusRetry   = "retry"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job represents a background job
type Job struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduledAt"`
	NextTryAt   *time.Time      `json:"nextTryAt,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}

// Handler is the function that processes a job
type Handler func(ctx context.Context, j *Job) error

var (
	// ErrMaxAttempts is returned by Process when a failing job is dead-lettered.
	ErrMaxAttempts = errors.New("max attempts reached")
	ErrNoHandler   = errors.New("no handler")
)

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	limit := 5 * time.Minute
	if attempt >= 9 {
		return limit
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > limit {
		return limit
	}
	return d
}
