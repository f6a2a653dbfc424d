package core

import "context"

// Node is an addressable conversational participant on the message bus.
// Receive handles one inbound message and returns the reply text, or an empty
// string when the message warrants no reply.
type Node interface {
	ID() string
	Name() string
	Receive(ctx context.Context, content, sender string) string
}

// Sender is the outbound half of the bus, exposed to nodes through Attach so
// a registered node can send without depending on the bus implementation.
type Sender interface {
	Send(ctx context.Context, sender, recipient, content string) error
}

// Attachable is implemented by nodes that keep a back-reference to the bus.
// The registry calls Attach on register and Detach on unregister.
type Attachable interface {
	Attach(Sender)
	Detach()
}

// CalendarHolder is the optional capability of owning a calendar. Schedulers
// reach other participants' calendars only through this accessor, so all
// cross-node writes go through the owning calendar's lock.
type CalendarHolder interface {
	Calendar() *Calendar
}
