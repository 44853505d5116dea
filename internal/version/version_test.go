package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("expected version %s, got %s", Version, info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("expected go version %s, got %s", runtime.Version(), info.GoVersion)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("unexpected platform %s", info.Platform)
	}
}

func TestLong(t *testing.T) {
	info := Info{
		Version:   "v1.2.0",
		GitCommit: "0123456789abcdef",
		BuildDate: "2026-01-02",
		GoVersion: "go1.24.11",
		Platform:  "linux/amd64",
	}
	got := info.Long()
	want := "enctests v1.2.0 (commit 0123456789ab, built 2026-01-02, go1.24.11, linux/amd64)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if !strings.Contains((Info{GitCommit: "abc"}).Long(), "commit abc,") {
		t.Error("expected short commits to be kept whole")
	}
}
