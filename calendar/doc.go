// Package calendar defines the optional external calendar capability. Only
// the contract is part of the core; wire-level provider clients live outside.
// MemoryProvider is an in-memory implementation for demos and tests. A node
// without a provider transparently uses the scheduler's local fallback paths.
package calendar
