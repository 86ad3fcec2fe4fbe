package transport

import (
	"context"
	"strings"

	wxerr "wxcipher/internal/errors"
	"wxcipher/internal/wire"
)

// WSDialer connects to a server listening in WebSocket mode.
type WSDialer struct {
	// Path is appended to "host:port" addresses (default "/").
	Path  string
	Frame wire.Options
}

// URL turns a "host:port" address into a ws:// URL.  Full ws:// or
// wss:// URLs pass through unchanged.
func (d *WSDialer) URL(address string) string {
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		return address
	}
	path := d.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "ws://" + address + path
}

// Dial opens the WebSocket.
func (d *WSDialer) Dial(ctx context.Context, address string) (wire.Conn, error) {
	url := d.URL(address)
	c, err := wire.DialWebSocket(ctx, url, d.Frame)
	if err != nil {
		return nil, wxerr.Wrap("dial", url, err)
	}
	return c, nil
}

// Close is a no-op.
func (d *WSDialer) Close() error { return nil }
