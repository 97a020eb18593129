// Package version holds the build version, overridden at link time with
// -ldflags "-X github.com/maxvaer/dirgraph/pkg/version.Version=1.2.3".
package version

// Version is the dirgraph release version.
var Version = "dev"
