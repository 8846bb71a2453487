package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/garnizeh/careerhub/internal/config"
)

var (
	ErrCircuitOpen = errors.New("ollama circuit open")
	ErrNoModel     = errors.New("no ollama model configured")
)

// Client wraps the Ollama API client and adds retries, timeout, and circuit breaker.
type Client struct {
	api    *api.Client
	cfg    config.OllamaConfig
	client *http.Client

	// simple circuit breaker state
	failures  int32
	openUntil int64 // unix nano
	closed    int32
}

// GenerateResult is the concatenated text of a streamed generation.
type GenerateResult struct {
	Text  string         `json:"text"`
	Model string         `json:"model"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// package-level logger for pkg/ollama; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/ollama. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// NewClient creates a new Ollama client wrapper.
func NewClient(cfg config.OllamaConfig, httpClient *http.Client) (*Client, error) {
	cfg = withDefaults(cfg)
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := &Client{
		api:    api.NewClient(u, httpClient),
		cfg:    cfg,
		client: httpClient,
	}
	logger.Info("ollama client created", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))
	return c, nil
}

func NewDefaultClient(cfg config.OllamaConfig) (*Client, error) {
	defaultClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewClient(cfg, defaultClient)
}

// DefaultModel is the first configured model name.
func (c *Client) DefaultModel() string {
	for _, m := range c.cfg.DefaultModelNames {
		if strings.TrimSpace(m) != "" {
			return m
		}
	}
	return ""
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// half-open: reset failures and allow a request
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

// Close closes idle connections on the underlying transport. Close is idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
			logger.Debug("ollama client closed idle connections")
		}
	}
	return nil
}

// ListModels returns the names of the locally available models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.List(ctx)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("list models: %w", err)
	}
	out := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, m.Name)
	}
	atomic.StoreInt32(&c.failures, 0)
	return out, nil
}

// Health reports an error unless Ollama answers with at least one model.
func (c *Client) Health(ctx context.Context) error {
	models, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if len(models) == 0 {
		return errors.New("health check failed: no models available")
	}
	return nil
}

// Generate sends a prompt and returns the concatenated streamed response.
// Failed attempts are retried with linear backoff.
func (c *Client) Generate(ctx context.Context, model, prompt string) (GenerateResult, error) {
	return c.generate(ctx, &api.GenerateRequest{Model: model, Prompt: prompt})
}

// GenerateJSON asks the default model for a JSON-only answer.
func (c *Client) GenerateJSON(ctx context.Context, system, prompt string) (GenerateResult, error) {
	model := c.DefaultModel()
	if model == "" {
		return GenerateResult{}, ErrNoModel
	}
	return c.generate(ctx, &api.GenerateRequest{
		Model:  model,
		System: system,
		Prompt: prompt,
		Format: []byte(`"json"`),
	})
}

func (c *Client) generate(ctx context.Context, req *api.GenerateRequest) (GenerateResult, error) {
	var empty GenerateResult
	if c.isCircuitOpen() {
		return empty, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		ctxReq, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		var sb strings.Builder
		start := time.Now()
		err := c.api.Generate(ctxReq, req, func(r api.GenerateResponse) error {
			sb.WriteString(r.Response)
			return nil
		})
		cancel()

		if err == nil {
			atomic.StoreInt32(&c.failures, 0)
			latency := time.Since(start)
			logger.Debug("ollama generate done", "model", req.Model, "latency_ms", latency.Milliseconds())
			return GenerateResult{
				Text:  sb.String(),
				Model: req.Model,
				Meta:  map[string]any{"latency_ms": latency.Milliseconds(), "attempts": attempt + 1},
			}, nil
		}

		lastErr = err
		c.recordFailure()
		logger.Warn("ollama generate failed", "model", req.Model, "attempt", attempt+1, "err", err)
		if ctx.Err() != nil {
			return empty, ctx.Err()
		}
		if attempt == c.cfg.Retries {
			break
		}

		t := time.NewTimer(c.cfg.Backoff * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			t.Stop()
			return empty, ctx.Err()
		case <-t.C:
		}
		if c.isCircuitOpen() {
			return empty, ErrCircuitOpen
		}
	}

	return empty, fmt.Errorf("generate failed after retries: %w", lastErr)
}
