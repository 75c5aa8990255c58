// SPDX-License-Identifier: MIT
//
// Package build exposes build metadata injected at compile time via
// -ldflags, e.g.:
//
//	go build -ldflags "-X vibesrgb/pkg/build.buildVersion=0.2.0"
//
// Fields left unset by the linker keep their development defaults.
package build

type ldFlags struct {
	Name    string // Application name
	Time    string // Build timestamp
	Commit  string // Git commit hash
	Version string // Semantic version
}

// Package-level variables populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "vibesrgb",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies linker-provided build information into the buildFlags
// struct. Unset flags keep their defaults so development builds work
// without any -ldflags.
func Initialize() {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build information. Call Initialize
// first so linker-provided values are visible.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
