package util

import (
	"errors"
	"io"
	"net"
)

// IsClosedConn reports whether err is the expected result of a peer
// hanging up or of our own side closing the connection.
func IsClosedConn(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
