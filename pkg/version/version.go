// Package version carries build-time metadata injected via ldflags.
package version

import "runtime/debug"

// Populated by the release build:
//
//	-ldflags "-X .../pkg/version.Version=v1.2.3 -X .../pkg/version.Commit=abc -X .../pkg/version.Date=..."
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

// InitBinaryVersion fills the commit from the embedded build info when
// ldflags did not set one (e.g. plain go install).
func InitBinaryVersion() {
	if Commit != "<unknown>" {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			Commit = setting.Value

			return
		}
	}
}
