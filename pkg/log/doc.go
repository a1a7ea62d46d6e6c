// Package log provides structured logging for bffhd using zerolog.
//
// A single global logger is configured once via Init; every subsystem
// derives a component-scoped child logger with Component instead of
// logging through the root logger directly, so JSON output lines carry
// a "component" field (e.g. "resource-engine", "auth-session").
package log
