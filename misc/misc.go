// Package misc keeps small program identification helpers in one place.
package misc

import (
	"runtime/debug"
)

const appName = "slidefit"

// set by the linker during release builds
var (
	version = "development"
	gitHash = ""
)

// GetAppName returns short program name used in logs, reports and temp files.
func GetAppName() string {
	return appName
}

// GetVersion returns program version, either set by the linker or derived
// from the module build information.
func GetVersion() string {
	if version != "development" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return version
}

// GetGitHash returns the vcs revision recorded in the build information.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	return "unknown"
}
