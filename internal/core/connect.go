package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"wxcipher/internal/capability"
	wxerr "wxcipher/internal/errors"
	"wxcipher/internal/retry"
	"wxcipher/internal/session"
	"wxcipher/internal/transport"
	"wxcipher/internal/wire"
	"wxcipher/util"
)

// ConnectMode dials a server and runs a capability on the resulting
// connection: the interactive client.
type ConnectMode struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Address    string
	Logger     *util.Logger

	// Backoff governs dial retries.  Nil tries once.
	Backoff *retry.Backoff

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the server, creates a session, and hands it to the
// capability.  Only dialing is retried: once connected, a refused
// login or a dropped connection ends Run.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	conn, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Verbose("connected to %s", conn.RemoteAddr())

	sess := session.New(conn, m.stdin(), m.stdout(), m.Logger)
	return m.Capability.Handle(ctx, sess)
}

func (m *ConnectMode) dial(ctx context.Context) (wire.Conn, error) {
	b := m.Backoff
	if b == nil {
		b = &retry.Backoff{MaxAttempts: 1}
	}
	if b.OnRetry == nil {
		b.OnRetry = func(attempt int, err error, wait time.Duration) {
			m.Logger.Warn("attempt %d: %v; retrying in %s", attempt, err, wait.Round(time.Millisecond))
		}
	}

	var conn wire.Conn
	err := b.Do(ctx, func(ctx context.Context, attempt int) error {
		m.Logger.Verbose("connecting to %s (attempt %d)", m.Address, attempt)
		c, err := m.Dialer.Dial(ctx, m.Address)
		if err != nil {
			if !wxerr.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	return conn, err
}
