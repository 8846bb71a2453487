// Package gradio calls endpoints of the Gradio app that hosts the CV parsing,
// review and career advisor models.
//
// A call is two requests: POST {base}/gradio_api/call/{endpoint} returns an
// event id, then GET {base}/gradio_api/call/{endpoint}/{event_id} streams
// server-sent events until a complete or error event arrives.
package gradio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	sse "github.com/tmaxmax/go-sse"
)

const maxEventSize = 16 << 20

var (
	ErrNoEventID     = errors.New("gradio response has no event_id")
	ErrNotConfigured = errors.New("gradio url not configured")
	ErrEmptyResult   = errors.New("gradio returned no data")
)

// Error is returned when the stream ends with an error event.
type Error struct {
	Endpoint string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gradio %s failed: %s", e.Endpoint, e.Message)
}

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the gradio package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

type Client struct {
	base    string
	timeout time.Duration
	http    *http.Client
}

// New returns a client for baseURL. timeout bounds a whole call including the
// event stream; zero means 300s.
func New(baseURL string, timeout time.Duration, hc *http.Client) *Client {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), timeout: timeout, http: hc}
}

// Call runs endpoint with the positional data and returns the raw result array.
func (c *Client) Call(ctx context.Context, endpoint string, data []any) (json.RawMessage, error) {
	if c == nil || c.base == "" {
		return nil, ErrNotConfigured
	}
	endpoint = strings.TrimPrefix(endpoint, "/")
	if data == nil {
		data = []any{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	eventID, err := c.submit(ctx, endpoint, data)
	if err != nil {
		return nil, err
	}
	out, err := c.stream(ctx, endpoint, eventID)
	if err != nil {
		logger.Warn("gradio call failed", "endpoint", endpoint, "event_id", eventID, "err", err)
		return nil, err
	}
	logger.Debug("gradio call done", "endpoint", endpoint, "event_id", eventID, "latency_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) submit(ctx context.Context, endpoint string, data []any) (string, error) {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return "", fmt.Errorf("encode gradio request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/gradio_api/call/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gradio %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gradio %s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		EventID string `json:"event_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gradio response: %w", err)
	}
	if out.EventID == "" {
		return "", ErrNoEventID
	}
	return out.EventID, nil
}

func (c *Client) stream(ctx context.Context, endpoint, eventID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/gradio_api/call/"+endpoint+"/"+eventID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gradio %s stream: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gradio %s stream returned status %d", endpoint, resp.StatusCode)
	}
	return readEvents(endpoint, resp.Body)
}

// readEvents returns the data of the first complete event. Without an event
// field the first data line is the result.
func readEvents(endpoint string, r io.Reader) (json.RawMessage, error) {
	for ev, err := range sse.Read(r, &sse.ReadConfig{MaxEventSize: maxEventSize}) {
		if err != nil {
			return nil, fmt.Errorf("read gradio stream: %w", err)
		}
		data := strings.TrimSpace(ev.Data)
		switch ev.Type {
		case "complete", "", "message":
			if data == "" || data == "null" {
				return nil, ErrEmptyResult
			}
			return json.RawMessage(data), nil
		case "error":
			return nil, &Error{Endpoint: endpoint, Message: data}
		}
		// heartbeat, generating
	}
	return nil, fmt.Errorf("gradio %s stream ended without result", endpoint)
}

// Health checks that the app answers on /config.
func (c *Client) Health(ctx context.Context) error {
	if c == nil || c.base == "" {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/config", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gradio config returned status %d", resp.StatusCode)
	}
	return nil
}
