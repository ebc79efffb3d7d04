package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	defer func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	}()

	Version = "1.0.0"
	Commit = "abc123def456"
	Date = "2024-01-01T12:00:00Z"

	info := GetInfo()
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "abc123def456", info.Commit)
	assert.Equal(t, "2024-01-01T12:00:00Z", info.Date)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestFillFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2025-02-03T04:05:06Z"},
		},
	}

	info := Info{Version: "dev", Commit: "unknown", Date: "unknown"}
	fillFromBuildInfo(&info, bi)
	assert.Equal(t, Info{Version: "v0.3.1", Commit: "0123456789abcdef", Date: "2025-02-03T04:05:06Z"}, info)

	// ldflags win.
	info = Info{Version: "1.2.3", Commit: "feedface", Date: "today"}
	fillFromBuildInfo(&info, bi)
	assert.Equal(t, Info{Version: "1.2.3", Commit: "feedface", Date: "today"}, info)

	info = Info{Version: "dev"}
	fillFromBuildInfo(&info, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	assert.Equal(t, "dev", info.Version)
}

func TestInfoString(t *testing.T) {
	got := Info{
		Version:   "1.0.0",
		Commit:    "abc123def456",
		Date:      "2024-01-01T12:00:00Z",
		GoVersion: "go1.24.0",
		Platform:  "linux/amd64",
	}.String()
	assert.Equal(t, "authflow 1.0.0 (abc123de) built 2024-01-01T12:00:00Z with go1.24.0 for linux/amd64", got)

	got = Info{Version: "dev", Commit: "abc123"}.String()
	assert.Contains(t, got, "(abc123)")
}

func TestInfoShort(t *testing.T) {
	assert.Equal(t, "1.0.0", Info{Version: "1.0.0"}.Short())
	assert.Equal(t, "dev", Info{Version: "dev"}.Short())
}
