package wire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	wxerr "wxcipher/internal/errors"
)

type readDeadliner interface{ SetReadDeadline(time.Time) error }
type writeDeadliner interface{ SetWriteDeadline(time.Time) error }

// StreamConn frames a byte stream with netstrings.
type StreamConn struct {
	rwc  io.ReadWriteCloser
	r    *bufio.Reader
	opts Options
	addr string
}

// NewStreamConn wraps rwc.  Deadlines are applied only when rwc
// supports them (a net.Conn does, an in-memory pipe may not).
func NewStreamConn(rwc io.ReadWriteCloser, opts Options) *StreamConn {
	c := &StreamConn{rwc: rwc, r: bufio.NewReader(rwc), opts: opts, addr: "-"}
	if nc, ok := rwc.(interface{ RemoteAddr() net.Addr }); ok && nc.RemoteAddr() != nil {
		c.addr = nc.RemoteAddr().String()
	}
	return c
}

// ReadFrame implements [Conn].  A peer that closes cleanly between
// frames yields io.EOF; one that closes mid-frame yields
// io.ErrUnexpectedEOF.
func (c *StreamConn) ReadFrame(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if d, ok := c.rwc.(readDeadliner); ok && c.opts.IdleTimeout > 0 {
		d.SetReadDeadline(time.Now().Add(c.opts.IdleTimeout)) //nolint:errcheck
	}

	n, err := c.readLength()
	if err != nil {
		return "", err
	}

	buf := make([]byte, n+1)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	if buf[n] != ',' {
		return "", fmt.Errorf("%w: missing ',' terminator", wxerr.ErrMalformedFrame)
	}
	return string(buf[:n]), nil
}

// readLength consumes "<digits>:" and returns the declared length.
func (c *StreamConn) readLength() (int, error) {
	max := c.opts.maxFrame()
	maxDigits := len(strconv.Itoa(max))

	n, digits := 0, 0
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			if digits > 0 && errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		switch {
		case b == ':':
			if digits == 0 {
				return 0, fmt.Errorf("%w: empty length prefix", wxerr.ErrMalformedFrame)
			}
			if n > max {
				return 0, fmt.Errorf("%w: %d > %d bytes", wxerr.ErrFrameTooLarge, n, max)
			}
			return n, nil
		case b >= '0' && b <= '9':
			digits++
			if digits > maxDigits {
				return 0, fmt.Errorf("%w: length prefix longer than %d digits", wxerr.ErrFrameTooLarge, maxDigits)
			}
			n = n*10 + int(b-'0')
		default:
			return 0, fmt.Errorf("%w: unexpected byte %q in length prefix", wxerr.ErrMalformedFrame, b)
		}
	}
}

// WriteFrame implements [Conn].  The whole netstring goes out in one
// write call.
func (c *StreamConn) WriteFrame(ctx context.Context, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if max := c.opts.maxFrame(); len(payload) > max {
		return fmt.Errorf("%w: %d > %d bytes", wxerr.ErrFrameTooLarge, len(payload), max)
	}
	if d, ok := c.rwc.(writeDeadliner); ok && c.opts.IdleTimeout > 0 {
		d.SetWriteDeadline(time.Now().Add(c.opts.IdleTimeout)) //nolint:errcheck
	}

	buf := make([]byte, 0, len(payload)+12)
	buf = strconv.AppendInt(buf, int64(len(payload)), 10)
	buf = append(buf, ':')
	buf = append(buf, payload...)
	buf = append(buf, ',')
	_, err := c.rwc.Write(buf)
	return err
}

// Close implements [Conn].
func (c *StreamConn) Close() error { return c.rwc.Close() }

// RemoteAddr implements [Conn].
func (c *StreamConn) RemoteAddr() string { return c.addr }
