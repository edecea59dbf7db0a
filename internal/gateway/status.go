package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/tgrelay/internal/probe"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds   int64           `json:"uptime_seconds"`
	Mode            string          `json:"mode"`
	Environment     string          `json:"environment"`
	TokenConfigured bool            `json:"token_configured"`
	Metrics         MetricsSnapshot `json:"metrics"`
	Upstream        *probe.Status   `json:"upstream,omitempty"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		g.mu.Lock()
		started := g.startedAt
		g.mu.Unlock()

		resp := StatusResponse{
			UptimeSeconds:   int64(time.Since(started).Seconds()),
			Mode:            g.strategy.Name(),
			Environment:     g.cfg.Environment,
			TokenConfigured: g.deps.Relay.Configured(),
		}
		if g.deps.Metrics != nil {
			resp.Metrics = g.deps.Metrics.Snapshot()
		}
		if g.deps.Probe != nil {
			if st, ok := g.deps.Probe.Status(); ok {
				resp.Upstream = &st
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
