package core

import "time"

// InfoTag marks system-to-system notices. The router strips the tag and
// surfaces the remainder verbatim so notices never re-trigger intent routing.
const InfoTag = "[(INFO)]"

// SystemSender is the sender id used for notifications that originate from
// the mesh itself (task assignments, meeting notices) rather than a node.
const SystemSender = "system"

// Message is a directed text delivery between two nodes. Immutable once
// created; it is logged by the bus and then handed to the recipient.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a Message stamped with a fresh id and the current UTC time.
func NewMessage(sender, recipient, content string) Message {
	return Message{
		ID:        NewID(),
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
