package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// HealthChecker is implemented by every external integration.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type SystemHandler struct {
	// Integrations maps a display name to its checker; nil entries report "disabled".
	Integrations map[string]HealthChecker
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"status":"ok","service":"careerhub"}`)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","buildTime":"%s"}`, version, buildTime)
	}
}

type integrationStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// IntegrationsHandler probes every integration concurrently.
func (h *SystemHandler) IntegrationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	out := make(map[string]integrationStatus, len(h.Integrations))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, c := range h.Integrations {
		if c == nil {
			out[name] = integrationStatus{Status: "disabled"}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			st := integrationStatus{Status: "ok"}
			if err := c.Health(ctx); err != nil {
				st = integrationStatus{Status: "down", Error: err.Error()}
			}
			st.LatencyMS = time.Since(start).Milliseconds()
			mu.Lock()
			out[name] = st
			mu.Unlock()
		}()
	}
	wg.Wait()
	writeJSON(w, out, http.StatusOK)
}
