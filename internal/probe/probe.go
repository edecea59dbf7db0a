// Package probe periodically checks that the Bot API is reachable with the
// configured token. Results feed /status and the upstream_up gauge; the
// request path never consults them.
package probe

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/tgrelay/internal/telegram"
)

// Checker calls getMe. *telegram.Client satisfies it.
type Checker interface {
	GetMe(ctx context.Context) (*telegram.User, error)
}

// Gauge records the latest probe outcome.
type Gauge interface {
	SetUpstreamUp(up bool)
}

// Status is the outcome of the most recent check.
type Status struct {
	Up        bool      `json:"up"`
	Bot       string    `json:"bot,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	LastError string    `json:"last_error,omitempty"`
	Checks    int64     `json:"checks"`
}

// Probe runs getMe checks and remembers the last result.
type Probe struct {
	checker Checker
	gauge   Gauge
	timeout time.Duration
	logger  *slog.Logger

	running sync.Mutex
	checks  atomic.Int64
	last    atomic.Pointer[Status]
}

// New creates a Probe. gauge may be nil.
func New(checker Checker, gauge Gauge, timeout time.Duration, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Probe{
		checker: checker,
		gauge:   gauge,
		timeout: timeout,
		logger:  logger.With("component", "probe"),
	}
}

// Name implements Job.
func (p *Probe) Name() string { return "upstream-probe" }

// Run implements Job. An overlapping tick is skipped.
func (p *Probe) Run(ctx context.Context) error {
	if !p.running.TryLock() {
		p.logger.Warn("probe still running, skipping tick")
		return nil
	}
	defer p.running.Unlock()

	st := p.Check(ctx)
	if !st.Up {
		p.logger.Warn("upstream probe failed", "error", st.LastError)
	}
	return nil
}

// Check performs one getMe call and records the outcome.
func (p *Probe) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	st := Status{CheckedAt: time.Now().UTC(), Checks: p.checks.Add(1)}
	user, err := p.checker.GetMe(ctx)
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.Up = true
		st.Bot = user.Username
	}

	p.last.Store(&st)
	if p.gauge != nil {
		p.gauge.SetUpstreamUp(st.Up)
	}
	p.logger.Debug("upstream probe", "up", st.Up, "bot", st.Bot)
	return st
}

// Status returns the last recorded outcome; ok is false before the first check.
func (p *Probe) Status() (Status, bool) {
	st := p.last.Load()
	if st == nil {
		return Status{}, false
	}
	return *st, true
}
