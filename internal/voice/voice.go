// Package voice talks to the Python voice interview service: REST calls for
// session setup, status, report and history, and a WebSocket relay for the
// live audio stream.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

var (
	ErrSessionNotFound = errors.New("voice interview session not found")
	ErrNotConfigured   = errors.New("voice interview url not configured")
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the voice package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// JobDescription is the role the candidate is interviewed for.
type JobDescription struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Requirements    []string `json:"requirements"`
	PreferredSkills []string `json:"preferredSkills"`
}

type SetupResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type SessionStatus struct {
	Active         bool   `json:"active"`
	CurrentSection string `json:"currentSection"`
	TotalSections  int    `json:"totalSections"`
	QuestionsAsked int    `json:"questionsAsked"`
}

// ReportResponse is the raw report; Report is empty while Status is "pending".
type ReportResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Report  []json.RawMessage `json:"report"`
}

// Pending reports whether the interview has not produced a report yet.
func (r *ReportResponse) Pending() bool {
	return r.Status == "pending"
}

type HistoryEntry struct {
	Section string `json:"section"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client struct {
	base    string
	timeout time.Duration
	http    *http.Client
}

// New returns a client for baseURL. timeout bounds each REST call; zero means 30s.
func New(baseURL string, timeout time.Duration, hc *http.Client) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), timeout: timeout, http: hc}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c == nil || c.base == "" {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode voice request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("voice %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("voice %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode voice response: %w", err)
	}
	return nil
}

// Setup creates an interview session for the CV and job.
func (c *Client) Setup(ctx context.Context, cvData json.RawMessage, job JobDescription) (*SetupResponse, error) {
	if job.Requirements == nil {
		job.Requirements = []string{}
	}
	if job.PreferredSkills == nil {
		job.PreferredSkills = []string{}
	}
	var out SetupResponse
	in := map[string]any{"cvData": cvData, "jobDescription": job}
	if err := c.do(ctx, http.MethodPost, "/api/voice-interview/setup", in, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		return nil, errors.New("voice service returned no session id")
	}
	logger.Info("voice interview session created", "session", out.SessionID, "status", out.Status)
	return &out, nil
}

func (c *Client) Status(ctx context.Context, sessionID string) (*SessionStatus, error) {
	var out SessionStatus
	if err := c.do(ctx, http.MethodGet, "/api/voice-interview/status/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Report(ctx context.Context, sessionID string) (*ReportResponse, error) {
	var out ReportResponse
	if err := c.do(ctx, http.MethodGet, "/api/voice-interview/report/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the conversation so far. Missing fields default to
// section "Unknown" and role "unknown".
func (c *Client) History(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	var out struct {
		History []HistoryEntry `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/voice-interview/history/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(out.History))
	for _, e := range out.History {
		if e.Section == "" {
			e.Section = "Unknown"
		}
		if e.Role == "" {
			e.Role = "unknown"
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// StreamURL is the service WebSocket URL for the session, or "" when the
// client is not configured.
func (c *Client) StreamURL(sessionID string) string {
	if c == nil || c.base == "" {
		return ""
	}
	base := c.base
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/voice-interview/stream/" + url.PathEscape(sessionID)
}

// Health reports whether the service answers at all.
func (c *Client) Health(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, "/api/voice-interview/status/health-check", nil, nil)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}
