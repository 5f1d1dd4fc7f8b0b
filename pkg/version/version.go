// Package version holds the build version, overridable with
// -ldflags "-X explainergo/pkg/version.Version=... -X explainergo/pkg/version.Commit=...".
package version

import "runtime/debug"

// Version is the current release.
var Version = "v0.1.0"

// Commit is the VCS revision, filled from build info when not set by ldflags.
var Commit = ""

// String renders the version with a short commit when one is known.
func String() string {
	c := Commit
	if c == "" {
		c = vcsRevision()
	}
	if len(c) > 7 {
		c = c[:7]
	}
	if c == "" {
		return Version
	}
	return Version + " (" + c + ")"
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
