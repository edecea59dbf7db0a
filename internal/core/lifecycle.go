package core

import "context"

// Starter is implemented by components that need to start background work
// (listeners, schedulers). Start must return once the work is running.
type Starter interface {
	Start() error
}

// Stopper is implemented by components that need to clean up resources.
// Called during shutdown in reverse order of Start().
type Stopper interface {
	Stop(ctx context.Context) error
}

// StopFunc adapts a plain shutdown function, such as a tracer provider
// flush, into a Stopper.
type StopFunc func(ctx context.Context) error

// Stop implements Stopper.
func (f StopFunc) Stop(ctx context.Context) error { return f(ctx) }
