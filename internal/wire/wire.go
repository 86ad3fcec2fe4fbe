// Package wire moves protocol frames over a connection.
//
// A frame is one complete text message sent in one turn.  Over a byte
// stream frames are netstrings ("<len>:<payload>,"), which lets a
// response carry newlines; over WebSocket each text message is a frame.
package wire

import (
	"context"
	"time"
)

// DefaultMaxFrameSize bounds a single frame's payload (64 KiB).
const DefaultMaxFrameSize = 64 * 1024

// Conn is a framed, turn-based connection.  A Conn is owned by exactly
// one session and is not safe for concurrent reads or concurrent writes.
type Conn interface {
	// ReadFrame blocks until one complete frame has arrived.
	ReadFrame(ctx context.Context) (string, error)

	// WriteFrame sends payload as exactly one frame.
	WriteFrame(ctx context.Context, payload string) error

	// Close releases the underlying connection.  Any blocked
	// ReadFrame or WriteFrame returns an error.
	Close() error

	// RemoteAddr describes the peer for logging.
	RemoteAddr() string
}

// Options tune a Conn.
type Options struct {
	// MaxFrameSize is the largest accepted payload in bytes.
	// Zero means DefaultMaxFrameSize.
	MaxFrameSize int

	// IdleTimeout, when positive, bounds each read and write.
	IdleTimeout time.Duration
}

func (o Options) maxFrame() int {
	if o.MaxFrameSize > 0 {
		return o.MaxFrameSize
	}
	return DefaultMaxFrameSize
}
