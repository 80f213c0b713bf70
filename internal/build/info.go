package build

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set through -ldflags at release time.
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
	GoVersion = runtime.Version()
	Platform  = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	StartTime = time.Now()
)

//nolint:gochecknoinits // fall back to module build info for local builds.
func init() {
	if Version != "" {
		return
	}

	Version = "dev"

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}

	for _, setting := range bi.Settings {
		if setting.Key == "vcs.revision" && Commit == "" {
			Commit = setting.Value
		}
	}
}

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Uptime    string `json:"uptime"`
}

// GetBuildInfo returns build information.
func GetBuildInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		Platform:  Platform,
		Uptime:    time.Since(StartTime).Truncate(time.Second).String(),
	}
}

func (i Info) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Version: %s\n", i.Version)

	if i.Commit != "" {
		fmt.Fprintf(&sb, "Commit: %s\n", i.Commit)
	}

	if i.BuildTime != "" {
		fmt.Fprintf(&sb, "Build Time: %s\n", i.BuildTime)
	}

	fmt.Fprintf(&sb, "Go Version: %s\n", i.GoVersion)
	fmt.Fprintf(&sb, "Platform: %s\n", i.Platform)
	fmt.Fprintf(&sb, "Uptime: %s\n", i.Uptime)

	return sb.String()
}
