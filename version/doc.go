// Package version reports the relay's build information.
//
// Version and commit are set at link time and otherwise fall back to the
// VCS stamp the Go toolchain embeds:
//
//	go build -ldflags "-X github.com/kbukum/eventrelay/version.Version=1.4.0" ./cmd/relay
package version
