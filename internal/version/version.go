// Package version provides centralized version information for Corral binaries.
// The corrald node agent and the corralctl administrative CLI are versioned
// independently so the management tool can evolve separately from the agent
// infrastructure it talks to. All versions follow semantic versioning (semver).
package version

// CorraldVersion holds the current corrald node agent version.
// Format: major.minor.patch[-prerelease][+build]
const CorraldVersion = "0.1.0-dev"

// CorralctlVersion holds the current corralctl CLI version.
// Format: major.minor.patch[-prerelease][+build]
const CorralctlVersion = "0.1.0-dev"
