// Package logging provides a minimal logging interface and adapters for GrowMesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the runtime, bus and cache layers use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - MeshLogger with agent/task context and domain helpers
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	rt := agent.NewRuntime(cfg, handlers, agent.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
