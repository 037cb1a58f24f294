// Package buildinfo reports the version stamped into the binary at link
// time, e.g.
//
//	go build -ldflags "-X github.com/nomis52/demoseed/buildinfo.version=v1.4.0 \
//	    -X github.com/nomis52/demoseed/buildinfo.gitCommit=$(git rev-parse HEAD)"
package buildinfo

import "runtime"

type Properties struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func Get() Properties {
	return Properties{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
	}
}

// String renders the properties on one line for logs and the version command.
func (p Properties) String() string {
	return p.Version + " (commit " + p.GitCommit + ", built " + p.BuildTime + ", " + p.GoVersion + ")"
}
