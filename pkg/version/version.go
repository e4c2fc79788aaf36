// Package version reports the gitlab-search build.
//
// Release builds set the variables with ldflags:
//
//	-X github.com/shkmv/gitlab-search-cli/pkg/version.Version=v1.2.0
//	-X github.com/shkmv/gitlab-search-cli/pkg/version.Commit=$(git rev-parse --short HEAD)
//	-X github.com/shkmv/gitlab-search-cli/pkg/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)
//
// Builds from `go install` fall back to the module version and the VCS
// stamps embedded by the toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo is the JSON form of `gitlab-search version --json`.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var fillOnce sync.Once

// fill replaces unset ldflags values with what the toolchain recorded.
func fill() {
	fillOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "unknown":
				Commit = s.Value
				if len(Commit) > 12 {
					Commit = Commit[:12]
				}
			case s.Key == "vcs.time" && Date == "unknown":
				Date = s.Value
			}
		}
	})
}

// GetInfo returns the build information.
func GetInfo() BuildInfo {
	fill()
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String is the one-line form printed by `gitlab-search version`.
func String() string {
	i := GetInfo()
	return fmt.Sprintf("gitlab-search %s (commit %s, built %s, %s %s)",
		i.Version, i.Commit, i.Date, i.GoVersion, i.Platform)
}

// Short returns the bare version.
func Short() string {
	fill()
	return Version
}

// UserAgent is sent with every GitLab request.
func UserAgent() string {
	return "gitlab-search/" + Short()
}
