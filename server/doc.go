// Package server provides the relay's HTTP server: Gin over HTTP/1.1 and
// h2c, the subscriber stream route and the operational endpoints.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request id generation and propagation
//   - CORS: cross-origin access for browser EventSource clients
//   - RequestLogger: request logging with duration
//   - RateLimit: per-client cap on new subscriber streams
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /health: component health aggregation, 503 when unhealthy
//   - /ready: readiness, 503 until the upstream feed is connected
//   - /alive: liveness
//   - /info: build information and live relay statistics
package server
