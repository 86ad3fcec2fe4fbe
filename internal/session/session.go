// Package session represents a single connection lifecycle, binding a
// framed connection to its protocol state machine and I/O endpoints.
//
// Capabilities operate on sessions rather than raw connections: the
// server side never touches Stdin or Stdout, the interactive client
// reads queries from Stdin and prints decoded responses to Stdout.
package session

import (
	"io"
	"sync/atomic"

	"wxcipher/internal/protocol"
	"wxcipher/internal/wire"
	"wxcipher/util"
)

var lastID atomic.Uint64

// Session encapsulates the runtime context for a single connection.
// Sessions share nothing with each other.
type Session struct {
	ID      uint64
	Conn    wire.Conn
	Machine *protocol.Machine
	Stdin   io.Reader
	Stdout  io.Writer
	Logger  *util.Logger
}

// New creates a Session bound to the given connection and I/O pair.
// State transitions are logged at debug level.
func New(conn wire.Conn, stdin io.Reader, stdout io.Writer, logger *util.Logger) *Session {
	s := &Session{
		ID:     lastID.Add(1),
		Conn:   conn,
		Stdin:  stdin,
		Stdout: stdout,
		Logger: logger,
	}
	s.Machine = protocol.NewMachine(protocol.WithObserver(func(from, to protocol.State) {
		logger.Debug("session %d (%s): %s -> %s", s.ID, conn.RemoteAddr(), from, to)
	}))
	return s
}
