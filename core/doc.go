// Package core provides the foundational domain types and interfaces used by
// orgmesh. It defines the core abstractions for:
//
//   - Nodes (addressable conversational participants on the bus)
//   - Messages (immutable directed text deliveries)
//   - Tasks, Projects and PlanSteps (the planning ledger's records)
//   - MeetingRecords and Calendars (per-node meeting bookkeeping)
//   - EventSink (UI-refresh notifications for external presentation layers)
//
// The package intentionally keeps implementation concerns (bus dispatch,
// scheduling, planning, routing) out of scope, exposing small interfaces to
// enable custom backends and extensions.
package core
