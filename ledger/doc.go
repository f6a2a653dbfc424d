// Package ledger keeps the ordered task collection. Appends notify the
// assignee nodes over the bus from the system sender and emit a
// tasks-changed refresh event. Assignees are matched both as single node ids
// and as members of a comma-joined role list.
package ledger
