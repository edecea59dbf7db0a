// Package app provides the entry point shared by the tgrelay commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/logging"
	"github.com/flemzord/tgrelay/internal/probe"
	"github.com/flemzord/tgrelay/internal/security"
	"github.com/flemzord/tgrelay/internal/telemetry"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.ResolvePath is consulted; no file at all is fine.
	ConfigPath string

	// EnvFiles are dotenv files loaded before the configuration. Defaults
	// to ".env" in the working directory.
	EnvFiles []string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string
}

// LoadConfig loads dotenv files, resolves the config path and returns the
// validated configuration along with the path actually used.
func LoadConfig(path string, envFiles ...string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, "", err
	}

	if path == "" {
		resolved, err := config.ResolvePath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := errors.Join(config.Validate(cfg), validateSchedule(cfg.Probe.Schedule)); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// validateSchedule rejects a probe schedule the scheduler would refuse at
// start. An empty schedule disables the probe.
func validateSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	if err := probe.ParseSchedule(expr); err != nil {
		return fmt.Errorf("config: probe.schedule: %w", err)
	}
	return nil
}

// NewRedactor returns a redactor that knows every secret in cfg.
func NewRedactor(cfg *config.Config) *security.Redactor {
	r := security.NewRedactor()
	r.AddLiteral(cfg.Telegram.Token)
	r.AddLiteral(cfg.Server.Auth.BearerToken)
	r.AddLiteral(cfg.Server.Auth.BasicPass)
	return r
}

// Run loads configuration, starts the relay and blocks until ctx is done or
// SIGINT/SIGTERM arrives.
func Run(ctx context.Context, params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath, params.EnvFiles...)
	if err != nil {
		return err
	}

	redactor := NewRedactor(cfg)
	logger, err := logging.New(cfg.Log, redactor)
	if err != nil {
		return err
	}
	defer logger.Close() //nolint:errcheck // best-effort flush of the file sink

	logger.Info("tgrelay starting",
		"version", params.Version,
		"commit", params.Commit,
		"config", cfgPath,
		"mode", cfg.Relay.Mode,
		"environment", cfg.Environment,
	)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, params.Version)
	if err != nil {
		return err
	}

	rt, err := build(cfg, redactor, logger.Logger, shutdownTracing)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return fmt.Errorf("app: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rt.app.Run(ctx)
}
