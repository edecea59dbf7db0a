// Package gateway is the inbound HTTP surface of tgrelay: routing, relay
// strategies, health, status, metrics and error rendering.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/security"
)

// Gateway owns the HTTP server. It implements core.Starter and core.Stopper.
type Gateway struct {
	cfg      *config.Config
	deps     Deps
	logger   *slog.Logger
	resp     *responder
	strategy Strategy
	handler  http.Handler

	mu        sync.Mutex
	server    *http.Server
	addr      net.Addr
	startedAt time.Time
}

// New builds a Gateway and its router. The strategy follows cfg.Relay.Mode.
func New(cfg *config.Config, deps Deps) (*Gateway, error) {
	if deps.Relay == nil || deps.Client == nil {
		return nil, errors.New("gateway: relay service and telegram client are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Redactor == nil {
		deps.Redactor = security.NewRedactor()
	}

	g := &Gateway{
		cfg:       cfg,
		deps:      deps,
		logger:    deps.Logger.With("component", "gateway"),
		startedAt: time.Now(),
	}
	g.resp = &responder{
		production: cfg.Production(),
		redactor:   deps.Redactor,
		logger:     g.logger,
	}

	switch cfg.Relay.Mode {
	case config.ModeTyped:
		g.strategy = &TypedAction{prefix: cfg.Relay.Prefix, relay: deps.Relay, resp: g.resp}
	case config.ModeForward:
		g.strategy = newGenericForward(cfg.Relay.Prefix, deps.Client, deps.Relay, g.resp, cfg.Server.Auth.IsConfigured())
	default:
		return nil, fmt.Errorf("gateway: unknown relay mode %q", cfg.Relay.Mode)
	}

	g.handler = g.buildRouter()
	return g, nil
}

// Handler returns the fully wired router.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Addr returns the bound listener address, or nil before Start.
func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addr
}

// Start implements core.Starter. It binds the listener synchronously so
// that bind errors surface here, then serves in the background.
func (g *Gateway) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.server = &http.Server{
		Addr:              g.cfg.Server.Bind,
		Handler:           g.handler,
		ReadHeaderTimeout: g.cfg.Server.ReadTimeout,
		ReadTimeout:       g.cfg.Server.ReadTimeout,
		WriteTimeout:      g.cfg.Server.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}
	g.addr = ln.Addr()
	g.startedAt = time.Now()

	server := g.server
	go func() {
		g.logger.Info("gateway listening",
			"addr", ln.Addr().String(),
			"mode", g.strategy.Name(),
			"environment", g.cfg.Environment,
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Without server.drain the listener and all
// open connections close at once; with it, in-flight requests get
// shutdown_timeout to finish.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.server == nil {
		return nil
	}

	if !g.cfg.Server.Drain {
		g.logger.Info("gateway closing")
		return g.server.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.cfg.Server.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway draining", "timeout", g.cfg.Server.ShutdownTimeout)
	return g.server.Shutdown(shutdownCtx)
}
