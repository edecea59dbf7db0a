package gateway

import (
	"log/slog"

	"github.com/flemzord/tgrelay/internal/probe"
	"github.com/flemzord/tgrelay/internal/relay"
	"github.com/flemzord/tgrelay/internal/security"
	"github.com/flemzord/tgrelay/internal/telegram"
)

// Deps are the collaborators a Gateway serves. Relay and Client are
// required; the rest degrade gracefully when nil.
type Deps struct {
	Relay    *relay.Service
	Client   *telegram.Client
	Metrics  *Metrics
	Probe    StatusReporter
	Redactor *security.Redactor
	Logger   *slog.Logger
}

// StatusReporter exposes the last upstream probe result. *probe.Probe
// satisfies it.
type StatusReporter interface {
	Status() (probe.Status, bool)
}
