// Package types provides types shared by the server and its handlers.
package types

import (
	"time"

	"github.com/nomis52/demoseed/buildinfo"
)

// ServerProperties describes the running schedule server.
type ServerProperties struct {
	Build     buildinfo.Properties `json:"build"`
	StartedAt time.Time            `json:"started_at"`
	Hostname  string               `json:"hostname"`
}
