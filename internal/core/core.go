// Package core sequences the start and stop of tgrelay's long-running
// components.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultShutdownTimeout bounds the whole stop sequence when the caller
// does not set one.
const DefaultShutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of components.
type App struct {
	components      []component
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

type component struct {
	name    string
	value   any
	started bool
}

// NewApp creates an empty App. A non-positive timeout selects
// DefaultShutdownTimeout.
func NewApp(logger *slog.Logger, shutdownTimeout time.Duration) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &App{
		logger:          logger.With("component", "core"),
		shutdownTimeout: shutdownTimeout,
	}
}

// Add registers a component. c should implement Starter, Stopper or both;
// components are started in the order they were added.
func (a *App) Add(name string, c any) {
	a.components = append(a.components, component{name: name, value: c})
}

// Start starts all components in order. If any Start() fails, the
// components already started are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.components {
		c := &a.components[i]
		if s, ok := c.value.(Starter); ok {
			a.logger.Info("starting component", "component", c.name)
			if err := s.Start(); err != nil {
				a.logger.Error("component start failed", "component", c.name, "error", err)
				_ = a.stopFrom(i - 1)
				return fmt.Errorf("starting %s: %w", c.name, err)
			}
		}
		c.started = true
	}
	a.logger.Info("all components started")
	return nil
}

// Stop stops all started components in reverse order within the shutdown
// timeout. Every component is asked to stop even if an earlier one fails.
func (a *App) Stop() error {
	return a.stopFrom(len(a.components) - 1)
}

func (a *App) stopFrom(index int) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := index; i >= 0; i-- {
		c := &a.components[i]
		if !c.started {
			continue
		}
		c.started = false
		s, ok := c.value.(Stopper)
		if !ok {
			continue
		}
		a.logger.Info("stopping component", "component", c.name)
		if err := s.Stop(ctx); err != nil {
			a.logger.Error("component stop error", "component", c.name, "error", err)
			errs = append(errs, fmt.Errorf("stopping %s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

// Run starts all components and blocks until ctx is done, then stops them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received", "cause", context.Cause(ctx))

	err := a.Stop()
	a.logger.Info("shutdown complete")
	return err
}
