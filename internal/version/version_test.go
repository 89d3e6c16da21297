package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func TestCurrentPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3"
	t.Cleanup(func() { buildVersion = old })

	if got := Current(); got != "v1.2.3" {
		t.Fatalf("expected build version, got %q", got)
	}
}

func TestPseudoFromBuildInfo(t *testing.T) {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	info := &debug.BuildInfo{
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
		},
	}
	if got := pseudoFromBuildInfo(info); got != "v0.0.0-20250102030405-1234567890ab" {
		t.Fatalf("unexpected pseudo version %q", got)
	}
	if pseudoFromBuildInfo(nil) != "" {
		t.Fatalf("expected empty version for nil build info")
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "v1.0.0", Module: "pkt.systems/tabforge", GoVersion: "go1.25", Revision: "abc", Dirty: true}
	got := info.String()
	if !strings.Contains(got, "v1.0.0") || !strings.HasSuffix(got, "rev abc+dirty") {
		t.Fatalf("unexpected info string %q", got)
	}
}
