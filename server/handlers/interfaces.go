// Package handlers serves the schedule server's HTTP API. Handlers see the
// server only through the small interfaces below; *server.Server and
// *runner.Runner satisfy them, tests use fakes.
package handlers

import (
	"time"

	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/server/runner"
	"github.com/nomis52/demoseed/server/types"
)

// ConfigProvider returns the configuration the next run will use, nil
// before one has loaded.
type ConfigProvider interface {
	Config() *config.Config
}

type Reloader interface {
	Reload() error
}

type SeedRunner interface {
	Run(source string) error
}

type HistoryProvider interface {
	History() []runner.RunStatus
	Get(id string) (runner.RunStatus, error)
}

type StatusProvider interface {
	Properties() types.ServerProperties
	Status() runner.RunStatus
	NextRun() *time.Time
}
