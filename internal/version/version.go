package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/tabforge"

// buildVersion is set via -ldflags "-X pkt.systems/tabforge/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Module    string `json:"module"`
	Revision  string `json:"revision,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	GoVersion string `json:"go_version"`
}

// String renders the info on one line.
func (i Info) String() string {
	out := fmt.Sprintf("%s %s (%s)", i.Module, i.Version, i.GoVersion)
	if i.Revision != "" {
		out += " rev " + i.Revision
		if i.Dirty {
			out += "+dirty"
		}
	}
	return out
}

// Current returns the best available version string.
func Current() string {
	return Read().Version
}

// Read collects version information from the linker flag and build info.
func Read() Info {
	info := Info{Version: "v0.0.0-unknown", Module: defaultModule, GoVersion: runtime.Version()}
	build, ok := debug.ReadBuildInfo()
	if ok {
		if path := strings.TrimSpace(build.Main.Path); path != "" {
			info.Module = path
		}
		info.Revision, info.Dirty = vcsState(build)
	}
	switch {
	case strings.TrimSpace(buildVersion) != "":
		info.Version = strings.TrimSpace(buildVersion)
	case ok && build.Main.Version != "" && build.Main.Version != "(devel)":
		info.Version = build.Main.Version
	case ok:
		if v := pseudoFromBuildInfo(build); v != "" {
			info.Version = v
		}
	}
	return info
}

func vcsState(build *debug.BuildInfo) (string, bool) {
	var revision string
	var modified bool
	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	return revision, modified
}

// pseudoFromBuildInfo derives a Go pseudo-version from VCS settings.
func pseudoFromBuildInfo(build *debug.BuildInfo) string {
	if build == nil {
		return ""
	}
	revision, _ := vcsState(build)
	var vcsTime string
	for _, setting := range build.Settings {
		if setting.Key == "vcs.time" {
			vcsTime = setting.Value
		}
	}
	if revision == "" || vcsTime == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcsTime)
	if err != nil {
		return ""
	}
	return "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + revision
}
