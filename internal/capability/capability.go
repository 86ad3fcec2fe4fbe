// Package capability defines what happens over an established
// connection.  Server answers one client session against the
// credential store and record provider; Client is its interactive
// mirror.  Both operate on a Session rather than a raw connection,
// which keeps them testable and decoupled from transport details.
package capability

import (
	"context"
	"errors"
	"io"

	wxerr "wxcipher/internal/errors"
	"wxcipher/internal/session"
)

// Capability handles a single connection.
type Capability interface {
	// Handle runs the capability against the given session.  It
	// blocks until the session ends.  A nil error means the session
	// ended normally: exit, or the peer hanging up between frames.
	Handle(ctx context.Context, sess *session.Session) error
}

// readFrame reads one frame, terminating the machine on failure.
// Framing errors are reported as protocol violations.
func readFrame(ctx context.Context, sess *session.Session) (string, error) {
	frame, err := sess.Conn.ReadFrame(ctx)
	if err == nil {
		return frame, nil
	}
	state := sess.Machine.State()
	sess.Machine.Terminate()
	if errors.Is(err, wxerr.ErrMalformedFrame) || errors.Is(err, wxerr.ErrFrameTooLarge) {
		return "", &wxerr.ProtocolViolationError{State: state.String(), Reason: "bad frame", Err: err}
	}
	return "", err
}

func writeFrame(ctx context.Context, sess *session.Session, payload string) error {
	if err := sess.Conn.WriteFrame(ctx, payload); err != nil {
		sess.Machine.Terminate()
		return wxerr.Wrap("write", sess.Conn.RemoteAddr(), err)
	}
	return nil
}

// isHangup reports whether err is the peer closing between frames.
func isHangup(err error) bool {
	return errors.Is(err, io.EOF)
}
