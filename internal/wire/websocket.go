package wire

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/coder/websocket"

	wxerr "wxcipher/internal/errors"
)

// WebSocketConn carries one frame per WebSocket text message.
type WebSocketConn struct {
	c    *websocket.Conn
	opts Options
	addr string
}

// NewWebSocketConn wraps an established WebSocket.
func NewWebSocketConn(c *websocket.Conn, remoteAddr string, opts Options) *WebSocketConn {
	// Allow a little headroom so an oversized frame is reported by
	// ReadFrame rather than by the library closing the socket.
	c.SetReadLimit(int64(opts.maxFrame()) + 1)
	return &WebSocketConn{c: c, opts: opts, addr: remoteAddr}
}

// AcceptWebSocket upgrades an HTTP request.  Origin checks are skipped:
// the protocol carries no ambient browser credentials.
func AcceptWebSocket(w http.ResponseWriter, r *http.Request, opts Options) (*WebSocketConn, error) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, err
	}
	return NewWebSocketConn(c, r.RemoteAddr, opts), nil
}

// DialWebSocket connects to a ws:// URL.
func DialWebSocket(ctx context.Context, url string, opts Options) (*WebSocketConn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewWebSocketConn(c, url, opts), nil
}

// ReadFrame implements [Conn].  A normal closure from the peer yields
// io.EOF.
func (w *WebSocketConn) ReadFrame(ctx context.Context) (string, error) {
	if w.opts.IdleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.IdleTimeout)
		defer cancel()
	}

	typ, data, err := w.c.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return "", io.EOF
		case websocket.StatusMessageTooBig:
			return "", fmt.Errorf("%w: %v", wxerr.ErrFrameTooLarge, err)
		}
		return "", err
	}
	if typ != websocket.MessageText {
		return "", fmt.Errorf("%w: binary message", wxerr.ErrMalformedFrame)
	}
	if len(data) > w.opts.maxFrame() {
		return "", fmt.Errorf("%w: %d > %d bytes", wxerr.ErrFrameTooLarge, len(data), w.opts.maxFrame())
	}
	return string(data), nil
}

// WriteFrame implements [Conn].
func (w *WebSocketConn) WriteFrame(ctx context.Context, payload string) error {
	if max := w.opts.maxFrame(); len(payload) > max {
		return fmt.Errorf("%w: %d > %d bytes", wxerr.ErrFrameTooLarge, len(payload), max)
	}
	if w.opts.IdleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.IdleTimeout)
		defer cancel()
	}
	return w.c.Write(ctx, websocket.MessageText, []byte(payload))
}

// Close implements [Conn].
func (w *WebSocketConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "")
}

// RemoteAddr implements [Conn].
func (w *WebSocketConn) RemoteAddr() string { return w.addr }
