// Package version carries build metadata stamped in by the linker.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// String renders the version line printed by `scribe version`. Binaries
// built with `go install` carry no linker flags; their module version and
// VCS stamp fill in the gaps.
func String() string {
	version, commit, date := Version, Commit, Date
	if info, ok := readBuildInfo(); ok {
		if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if commit == "none" && setting.Value != "" {
					commit = setting.Value
				}
			case "vcs.time":
				if date == "unknown" && setting.Value != "" {
					date = setting.Value
				}
			}
		}
	}
	return "scribe " + version + " (commit=" + commit + ", date=" + date + ", go=" + runtime.Version() + ")"
}
