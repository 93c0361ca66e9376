package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthProbe checks one upstream: a SOAP service, the saga database.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func CheckHealth(ctx context.Context, probe HealthProbe) HealthResult {
	// Short probe timeout
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := probe.Check(ctx); err != nil {
		return HealthResult{Name: probe.Name, OK: false, Error: err.Error()}
	}
	return HealthResult{Name: probe.Name, OK: true}
}

type HealthHandler struct {
	Probes []HealthProbe
}

func (h *HealthHandler) Gateway(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "urbandrive-web",
	})
}

func (h *HealthHandler) Upstreams(w http.ResponseWriter, r *http.Request) {
	results := make([]HealthResult, len(h.Probes))

	var wg sync.WaitGroup
	wg.Add(len(h.Probes))
	for i := range h.Probes {
		i := i
		go func() {
			defer wg.Done()
			results[i] = CheckHealth(r.Context(), h.Probes[i])
		}()
	}
	wg.Wait()

	status := "ok"
	for _, res := range results {
		if !res.OK {
			status = "degraded"
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"service":  "urbandrive-web",
		"upstream": results,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
