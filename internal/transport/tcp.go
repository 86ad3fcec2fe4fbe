package transport

import (
	"context"
	"net"
	"time"

	wxerr "wxcipher/internal/errors"
	"wxcipher/internal/wire"
)

// TCPDialer establishes netstring-framed TCP connections.
type TCPDialer struct {
	Timeout time.Duration
	Frame   wire.Options
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, address string) (wire.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	nc, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, wxerr.Wrap("dial", address, err)
	}
	return wire.NewStreamConn(nc, d.Frame), nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
