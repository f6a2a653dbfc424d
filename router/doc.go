// Package router turns inbound messages into actions through a fixed stage
// pipeline: notification passthrough, quick commands, the yes/no confirmation
// gate, calendar handling, email handling and finally transcript-backed chat.
// The first stage that claims a message produces the reply.
package router
