package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/garnizeh/careerhub/internal/extract"
	"github.com/garnizeh/careerhub/internal/notify"
	"github.com/garnizeh/careerhub/internal/storage"
	"github.com/garnizeh/careerhub/pkg/repository"
)

// ResumePayload is the payload of resume.extract and resume.review jobs.
type ResumePayload struct {
	ResumeID    int64   `json:"resumeId"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
}

// Reviewer is the CV review call of the Gradio client.
type Reviewer interface {
	ReviewCV(ctx context.Context, cvJSON string, temperature float64, maxTokens int) (string, error)
}

// Deps are the collaborators the built-in handlers need. Nil members
// disable the matching handler.
type Deps struct {
	Resumes   repository.ResumeRepo
	Store     storage.ObjectStore
	Reviewer  Reviewer
	Publisher notify.Publisher
	Logger    *slog.Logger
}

// Handlers returns the handler map for the worker pool.
func Handlers(d Deps) map[string]Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	h := map[string]Handler{}
	if d.Resumes != nil && d.Store != nil {
		h[TypeResumeExtract] = d.extractResume
	}
	if d.Resumes != nil && d.Reviewer != nil {
		h[TypeResumeReview] = d.reviewResume
	}
	if d.Publisher != nil {
		h[TypeNotificationPublish] = func(ctx context.Context, j *Job) error {
			return notify.PublishPayload(ctx, d.Publisher, j.Payload)
		}
	}
	return h
}

func decodeResume(j *Job) (ResumePayload, error) {
	var p ResumePayload
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, fmt.Errorf("decode payload: %w", err)
	}
	if p.ResumeID == 0 {
		return p, errors.New("payload has no resumeId")
	}
	return p, nil
}

func (d Deps) extractResume(ctx context.Context, j *Job) error {
	p, err := decodeResume(j)
	if err != nil {
		return err
	}
	res, err := d.Resumes.GetResume(ctx, p.ResumeID)
	if err != nil {
		return err
	}
	if res == nil || res.FileKey == "" {
		d.Logger.Info("resume has no file, skipping extraction", "resume", p.ResumeID)
		return nil
	}

	rc, err := d.Store.Get(ctx, res.FileKey)
	if err != nil {
		return fmt.Errorf("get %s: %w", res.FileKey, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", res.FileKey, err)
	}

	kind := res.MimeType
	if kind == "" || kind == "application/octet-stream" {
		kind = res.FileName
	}
	text, err := extract.Text(ctx, bytes.NewReader(b), int64(len(b)), kind)
	if errors.Is(err, extract.ErrUnsupportedType) {
		d.Logger.Info("no text extractor for resume file", "resume", p.ResumeID, "type", kind)
		return nil
	}
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	return d.Resumes.SetResumeText(ctx, res.ID, text)
}

func (d Deps) reviewResume(ctx context.Context, j *Job) error {
	p, err := decodeResume(j)
	if err != nil {
		return err
	}
	res, err := d.Resumes.GetResume(ctx, p.ResumeID)
	if err != nil {
		return err
	}
	if res == nil {
		d.Logger.Info("resume deleted before review", "resume", p.ResumeID)
		return nil
	}
	review, err := d.Reviewer.ReviewCV(ctx, string(res.Data), p.Temperature, p.MaxTokens)
	if err != nil {
		return fmt.Errorf("review cv: %w", err)
	}
	return d.Resumes.SetResumeReview(ctx, res.ID, review, time.Now().UTC().UnixMilli())
}
