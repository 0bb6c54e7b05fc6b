package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/docqa/docqa-go/internal/logging"
)

// probeTimeout bounds each dependency probe so /api/ready answers promptly
// even when a dependency hangs instead of refusing.
const probeTimeout = 5 * time.Second

// Pinger reports the reachability of one pipeline dependency. Implementations
// return nil when healthy and must be safe for concurrent use.
type Pinger interface {
	Ping(ctx context.Context) error

	// Name is the short label shown in readiness responses, e.g. "qdrant".
	Name() string
}

// readyCheck is one dependency's probe result in the readiness response.
type readyCheck struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	// Error holds the failure reason when OK is false.
	Error string `json:"error,omitempty"`
}

// readyResponse is the JSON body of GET /api/ready.
type readyResponse struct {
	Ready  bool         `json:"ready"`
	Checks []readyCheck `json:"checks"`
}

// handleReady probes every registered dependency with a per-probe timeout.
// 200 means all probes passed; 503 names the failures. /api/health stays a
// bare liveness check; this endpoint is the one that reflects dependency
// state, so orchestrators should gate traffic on it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	resp := s.runProbes(r.Context(), log)

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("ready encode error", slog.Any("error", err))
	}
}

// runProbes executes every pinger sequentially and collects the results.
func (s *Server) runProbes(ctx context.Context, log *slog.Logger) readyResponse {
	resp := readyResponse{Ready: true}

	for _, p := range s.pingers {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := p.Ping(probeCtx)
		cancel()

		check := readyCheck{Name: p.Name(), OK: err == nil}
		if err != nil {
			check.Error = err.Error()
			resp.Ready = false
			log.Warn("readiness probe failed",
				slog.String("dependency", p.Name()),
				slog.Any("error", err),
			)
		}
		resp.Checks = append(resp.Checks, check)
	}

	return resp
}

// PingerFunc adapts a function and a label into a Pinger.
type PingerFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

func (p PingerFunc) Ping(ctx context.Context) error {
	if err := p.Fn(ctx); err != nil {
		return fmt.Errorf("%s probe failed: %w", p.Label, err)
	}
	return nil
}

func (p PingerFunc) Name() string { return p.Label }
