// Package bus implements the node registry and the synchronous message bus.
//
// Register stores a node handle under its id and, when the node supports it,
// attaches a back-reference so the node can send outbound messages. Send
// always appends a delivery-log entry, then invokes the recipient's Receive
// on the caller's stack. An unknown recipient is logged and swallowed, never
// surfaced as an error. Re-entrant sends from inside a Receive handler are
// permitted and produce a call stack rather than a queue.
package bus
