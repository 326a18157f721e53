package version

import (
	"runtime/debug"
	"testing"
)

func TestResolvePrefersLdflags(t *testing.T) {
	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.26.0",
			Main:      debug.Module{Version: "v0.9.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "ffffffffffffffffffff"},
				{Key: "vcs.time", Value: "2026-01-01T00:00:00Z"},
			},
		}, true
	}
	info := resolve("v1.2.3", "0123456789abcdef", "", read)
	if info.Version != "v1.2.3" || info.Commit != "0123456789abcdef" {
		t.Fatalf("ldflags values not kept: %+v", info)
	}
	if info.BuildTime != "2026-01-01T00:00:00Z" {
		t.Fatalf("expected vcs.time fallback, got %q", info.BuildTime)
	}
	if got := info.String(); got != "v1.2.3 (0123456789ab)" {
		t.Fatalf("unexpected string %q", got)
	}
}

func TestResolveFromBuildInfo(t *testing.T) {
	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "(devel)"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc"},
				{Key: "vcs.time", Value: "2026-02-03T04:05:06Z"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	}
	info := resolve("", "", "", read)
	if info.Version != "2026-02-03T04:05:06Z" {
		t.Fatalf("expected build time as version, got %q", info.Version)
	}
	if got := info.String(); got != "2026-02-03T04:05:06Z (abc+dirty)" {
		t.Fatalf("unexpected string %q", got)
	}
}

func TestResolveWithoutBuildInfo(t *testing.T) {
	info := resolve("", "", "", func() (*debug.BuildInfo, bool) { return nil, false })
	if info.Version == "" {
		t.Fatalf("expected a timestamp version")
	}
	if info.String() != info.Version {
		t.Fatalf("expected bare version without commit, got %q", info.String())
	}
}
