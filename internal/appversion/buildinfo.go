// Package appversion holds the version string stamped into the gnomes
// binaries.
package appversion

// version is set at build time with
// -ldflags "-X gnomes/internal/appversion.version=v1.2.3".
var version = "dev" //nolint:gochecknoglobals // ldflags requires package-level var

// String returns the current version, "dev" for unstamped builds.
func String() string {
	return version
}
