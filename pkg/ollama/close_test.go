package ollama

import (
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garnizeh/careerhub/internal/config"
)

type testTransport struct{ called int32 }

func (t *testTransport) RoundTrip(req *http.Request) (*http.Response, error) { panic("not used") }
func (t *testTransport) CloseIdleConnections()                               { atomic.AddInt32(&t.called, 1) }

func TestClient_Close_IdempotentAndCallsTransport(t *testing.T) {
	tr := &testTransport{}
	c, err := NewClient(config.OllamaConfig{BaseURL: "http://localhost:11434"}, &http.Client{Transport: tr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close second call error: %v", err)
	}
	if atomic.LoadInt32(&tr.called) != 1 {
		t.Fatalf("expected CloseIdleConnections called once, got %d", tr.called)
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := withDefaults(config.OllamaConfig{Retries: -3})
	if cfg.BaseURL == "" || cfg.Timeout != 120*time.Second || cfg.Retries != 0 || cfg.CircuitFailureThreshold != 5 || len(cfg.DefaultModelNames) != 1 {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	kept := withDefaults(config.OllamaConfig{BaseURL: "http://x:1", Timeout: time.Second, DefaultModelNames: []string{"qwen"}})
	if kept.BaseURL != "http://x:1" || kept.Timeout != time.Second || kept.DefaultModelNames[0] != "qwen" {
		t.Fatalf("explicit values overwritten %#v", kept)
	}
}
