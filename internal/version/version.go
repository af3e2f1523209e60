// Package version identifies the running build.
package version

import "runtime/debug"

// Version is overridden at build time with -ldflags "-X duque/internal/version.Version=...".
var Version = "dev"

const AppName = "Duque"

// String returns the version to display. A non-empty override wins, then the
// linker value, then the module version recorded by go install.
func String(override string) string {
	if override != "" {
		return override
	}
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
