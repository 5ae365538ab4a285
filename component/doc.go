// Package component defines the lifecycle interface shared by the relay's
// long-running parts and an ordered registry that starts them in order and
// stops them in reverse.
//
// The relay registers, in order: telemetry, the SSE hub, the upstream
// session, and the HTTP server. Shutdown therefore stops accepting new
// subscribers first, then closes the upstream connection, then completes
// every open subscriber stream.
package component
