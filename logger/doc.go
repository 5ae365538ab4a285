// Package logger wraps zerolog with the relay's field names.
//
// Loggers are obtained per component with Get and log with an optional
// field map:
//
//	log := logger.Get("upstream")
//	log.Info("connected", logger.Fields(logger.FieldUpstream, addr))
//
// WithContext adds trace, span and request IDs carried by a context.
// Init replaces the global logger and drops cached component loggers.
package logger
