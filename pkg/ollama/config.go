package ollama

import (
	"time"

	"github.com/garnizeh/careerhub/internal/config"
)

// withDefaults fills zero-valued settings.
func withDefaults(cfg config.OllamaConfig) config.OllamaConfig {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if len(cfg.DefaultModelNames) == 0 {
		cfg.DefaultModelNames = []string{"llama3"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.CircuitFailureThreshold <= 0 {
		cfg.CircuitFailureThreshold = 5
	}
	if cfg.CircuitReset <= 0 {
		cfg.CircuitReset = 30 * time.Second
	}
	return cfg
}
