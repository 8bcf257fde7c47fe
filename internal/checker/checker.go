package checker

import (
	"context"
	"fmt"

	"github.com/hazz-dev/ewwatch/internal/config"
)

// Check names, in reporting order.
const (
	NameConnection = "connection"
	NameDataFlow   = "data-flow"
	NameLog        = "log"
)

// Checker performs a single health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// New returns the connection, data-flow and log checkers, in that order.
func New(probes config.Probes) ([]Checker, error) {
	conn, err := NewConnection(probes.Connection)
	if err != nil {
		return nil, err
	}
	return []Checker{
		conn,
		NewDataFlow(probes.DataFlow),
		NewLog(probes.Log),
	}, nil
}

// NewConnection returns the connection checker for the configured mode.
func NewConnection(cfg config.Connection) (Checker, error) {
	switch cfg.Mode {
	case config.ModeDial, "":
		return newTCPChecker(cfg), nil
	case config.ModeEstablished:
		return newSocketTableChecker(cfg), nil
	default:
		return nil, fmt.Errorf("unknown connection mode %q", cfg.Mode)
	}
}
