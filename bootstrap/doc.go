// Package bootstrap runs the relay process: it validates configuration,
// initializes logging, starts components in registration order, prints a
// startup summary, waits for SIGINT/SIGTERM and stops components in
// reverse order within a graceful timeout.
package bootstrap
