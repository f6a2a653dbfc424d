// Package dialog holds a node's conversational state: the meeting draft, the
// pending yes/no confirmation, the email draft and the rolling transcript.
//
// The slots are mutually exclusive and global per node. A node runs at most
// one multi-turn flow at a time, so a message from any counterpart continues
// the active flow. Starting one slot clears the others.
package dialog
