// Package scheduler implements meeting coordination: intent detection, detail
// extraction, multi-turn slot filling, conflict detection across participant
// calendars, booking with an optional external provider, cancellation and
// rescheduling. Without a provider everything falls back to purely local
// calendars so the workflow stays fully functional offline.
package scheduler
