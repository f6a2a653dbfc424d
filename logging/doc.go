// Package logging provides a minimal logging interface and adapters for orgmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the bus, planner, scheduler and router use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - MeshLogger, a contextual logger carrying node/component attributes
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mesh := orgmesh.New(func(o *orgmesh.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
