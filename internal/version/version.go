// Package version reports the swarm build version.
package version

import "strings"

// Version is set at build time with
// -ldflags "-X github.com/ShayCichocki/swarm/internal/version.Version=v0.3.0".
var Version = "dev"

// Get returns the current version, with whitespace trimmed
func Get() string {
	v := strings.TrimSpace(Version)
	if v == "" {
		return "dev"
	}
	return v
}
