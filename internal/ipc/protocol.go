// Package ipc implements the client side of the midisock request
// protocol and defines the wire constants shared with the daemon.
//
// The protocol is a single short exchange per connection: the client
// writes one note name terminated by a newline and half-closes the
// write side; the daemon answers with either the success marker or an
// "ERR: <reason>" line.
package ipc

const (
	// ReplySent is the daemon's success marker.
	ReplySent = "SENT"

	// ErrPrefix starts every daemon error reply.
	ErrPrefix = "ERR"

	// maxReplySize bounds a daemon reply.
	maxReplySize = 256
)
