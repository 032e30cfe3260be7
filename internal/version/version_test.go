package version

import (
	"runtime/debug"
	"testing"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	prev := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = prev })
}

func stubVars(t *testing.T, v, c, b string) {
	t.Helper()
	pv, pc, pb := Version, Commit, BuildTime
	Version, Commit, BuildTime = v, c, b
	t.Cleanup(func() { Version, Commit, BuildTime = pv, pc, pb })
}

func TestResolvePrefersLdflags(t *testing.T) {
	stubVars(t, "v1.2.3", "abcdef0123456789", "2026-01-01")
	stubBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "v0.0.1"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})

	info := Resolve()
	if info.Version != "v1.2.3" || info.Commit != "abcdef0123456789" || info.BuildTime != "2026-01-01" {
		t.Fatalf("unexpected info %+v", info)
	}
	if got := String(); got != "v1.2.3 (abcdef012345)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestResolveFallsBackToBuildInfo(t *testing.T) {
	stubVars(t, "", "", "")
	stubBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-10-01T00:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := Resolve()
	if info.Version != "dev" || info.BuildTime != "2026-10-01T00:00:00Z" || !info.Modified {
		t.Fatalf("unexpected info %+v", info)
	}
	if got := String(); got != "dev (0123456789ab-dirty)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestResolveWithoutBuildInfo(t *testing.T) {
	stubVars(t, "", "", "")
	stubBuildInfo(t, nil)

	if got := String(); got != "dev" {
		t.Fatalf("String() = %q", got)
	}
}
