package app

import (
	"log/slog"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/gateway"
	"github.com/flemzord/tgrelay/internal/probe"
	"github.com/flemzord/tgrelay/internal/relay"
	"github.com/flemzord/tgrelay/internal/security"
	"github.com/flemzord/tgrelay/internal/telegram"
	"github.com/flemzord/tgrelay/internal/telemetry"
)

// runtime is the wired component graph for one process.
type runtime struct {
	app     *core.App
	gateway *gateway.Gateway
	client  *telegram.Client
	metrics *gateway.Metrics
	probe   *probe.Probe
}

// build wires the Telegram client, relay service, optional probe and the
// gateway into a core.App. Components stop in reverse order, so tracing is
// registered first to flush last.
func build(cfg *config.Config, redactor *security.Redactor, logger *slog.Logger, tracing telemetry.ShutdownFunc) (*runtime, error) {
	rt := &runtime{
		app:     core.NewApp(logger, cfg.Server.ShutdownTimeout+cfg.Telegram.Timeout),
		client:  telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIURL, cfg.Telegram.Timeout),
		metrics: gateway.NewMetrics(),
	}

	if tracing != nil {
		rt.app.Add("telemetry", core.StopFunc(tracing))
	}

	if !rt.client.HasToken() {
		logger.Warn("telegram bot token is not configured; relay requests will fail until it is set")
	}

	svc := relay.NewService(rt.client,
		relay.WithObserver(rt.metrics),
		relay.WithLogger(logger),
	)

	deps := gateway.Deps{
		Relay:    svc,
		Client:   rt.client,
		Metrics:  rt.metrics,
		Redactor: redactor,
		Logger:   logger,
	}

	if cfg.Probe.Schedule != "" {
		rt.probe = probe.New(rt.client, rt.metrics, cfg.Telegram.Timeout, logger)
		deps.Probe = rt.probe
		rt.app.Add("probe", probe.NewScheduler(cfg.Probe.Schedule, rt.probe, logger))
	}

	gw, err := gateway.New(cfg, deps)
	if err != nil {
		return nil, err
	}
	rt.gateway = gw
	rt.app.Add("gateway", gw)

	return rt, nil
}
