package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"wxcipher/internal/capability"
	wxerr "wxcipher/internal/errors"
	"wxcipher/internal/metrics"
	"wxcipher/internal/session"
	"wxcipher/internal/transport"
	"wxcipher/internal/wire"
	"wxcipher/util"
)

// ListenMode accepts connections and runs a capability on each one in
// its own goroutine.  Sessions are isolated: a failure or panic in one
// is logged and never reaches the accept loop or its neighbours.
//
// On context cancellation ListenMode stops accepting at once, gives
// in-flight sessions GracePeriod to finish, then closes whatever is
// still open and waits for the handlers to return.
type ListenMode struct {
	Address        string // "host:port"
	Network        string // "tcp" or "ws"
	WebSocketPath  string // ws only; default "/"
	MaxConnections int    // 0 = unlimited
	IdleTimeout    time.Duration
	GracePeriod    time.Duration
	MaxFrameSize   int
	Capability     capability.Capability
	Logger         *util.Logger
	Metrics        *metrics.Collector

	// MetricsAddress, if set, serves Metrics at /metrics.
	MetricsAddress string

	// Closers are closed after the last session has ended.
	Closers []io.Closer

	// OnListen is called with the bound address once the listener is
	// up.  Tests use it to learn an ephemeral port.
	OnListen func(net.Addr)

	mu      sync.Mutex
	conns   map[wire.Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

// Run listens until ctx is cancelled, then drains the open sessions.
func (m *ListenMode) Run(ctx context.Context) error {
	defer m.closeAll()

	if err := transport.CheckNetwork(m.Network); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.Address, err)
	}
	if m.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, m.MaxConnections)
	}
	m.Logger.Info("listening on %s (%s)", ln.Addr(), m.Network)
	if m.OnListen != nil {
		m.OnListen(ln.Addr())
	}

	if m.MetricsAddress != "" {
		stop, err := m.serveMetrics()
		if err != nil {
			ln.Close()
			return err
		}
		defer stop()
	}

	// Sessions outlive the cancellation so that the grace period can
	// apply; they end by themselves or by being closed in drain.
	sessCtx := context.WithoutCancel(ctx)

	if m.Network == transport.NetworkWS {
		err = m.serveWebSocket(ctx, sessCtx, ln)
	} else {
		err = m.serveTCP(ctx, sessCtx, ln)
	}
	m.drain()
	return err
}

func (m *ListenMode) frameOptions() wire.Options {
	return wire.Options{MaxFrameSize: m.MaxFrameSize, IdleTimeout: m.IdleTimeout}
}

// ── TCP ──────────────────────────────────────────────────────────────

func (m *ListenMode) serveTCP(ctx, sessCtx context.Context, ln net.Listener) error {
	defer ln.Close()

	// Shut the listener down when the context expires.
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		conn := wire.NewStreamConn(nc, m.frameOptions())
		if !m.track(conn) {
			conn.Close()
			continue
		}
		go m.handle(sessCtx, conn)
	}
}

// ── WebSocket ────────────────────────────────────────────────────────

func (m *ListenMode) serveWebSocket(ctx, sessCtx context.Context, ln net.Listener) error {
	path := m.WebSocketPath
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := wire.AcceptWebSocket(w, r, m.frameOptions())
		if err != nil {
			m.Logger.Debug("websocket upgrade from %s: %v", r.RemoteAddr, err)
			return
		}
		if !m.track(conn) {
			conn.Close()
			return
		}
		// The upgraded connection is hijacked; this goroutine is the
		// session's.
		m.handle(sessCtx, conn)
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	stop := context.AfterFunc(ctx, func() { srv.Close() })
	defer stop()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve websocket: %w", err)
	}
	return nil
}

// ── Sessions ─────────────────────────────────────────────────────────

// track registers conn.  It refuses once draining has begun.
func (m *ListenMode) track(conn wire.Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return false
	}
	if m.conns == nil {
		m.conns = make(map[wire.Conn]struct{})
	}
	m.conns[conn] = struct{}{}
	m.wg.Add(1)
	return true
}

func (m *ListenMode) untrack(conn wire.Conn) {
	m.mu.Lock()
	delete(m.conns, conn)
	m.mu.Unlock()
	conn.Close()
	m.wg.Done()
}

func (m *ListenMode) handle(ctx context.Context, conn wire.Conn) {
	defer m.untrack(conn)
	defer m.Metrics.SessionOpened()()

	sess := session.New(conn, nil, nil, m.Logger)
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error("session %d: panic: %v\n%s", sess.ID, r, debug.Stack())
		}
	}()

	m.Logger.Verbose("session %d: connection from %s", sess.ID, conn.RemoteAddr())
	err := m.Capability.Handle(ctx, sess)
	switch {
	case err == nil:
		m.Logger.Verbose("session %d: closed", sess.ID)
	case errors.Is(err, wxerr.ErrAuthFailed):
		m.Logger.Verbose("session %d: closed after failed login", sess.ID)
	case wxerr.IsProtocolViolation(err):
		m.Logger.Warn("session %d: %v", sess.ID, err)
	case m.isClosing() && util.IsClosedConn(err):
		m.Logger.Debug("session %d: closed during shutdown", sess.ID)
	default:
		m.Logger.Warn("session %d: %v", sess.ID, err)
	}
}

func (m *ListenMode) isClosing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closing
}

// drain waits up to GracePeriod for open sessions, then force-closes
// the rest.
func (m *ListenMode) drain() {
	m.mu.Lock()
	m.closing = true
	open := len(m.conns)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	if open > 0 {
		m.Logger.Info("waiting up to %s for %d session(s)", m.GracePeriod, open)
	}
	timer := time.NewTimer(m.GracePeriod)
	defer timer.Stop()
	select {
	case <-done:
		return
	case <-timer.C:
	}

	m.mu.Lock()
	stragglers := make([]wire.Conn, 0, len(m.conns))
	for conn := range m.conns {
		stragglers = append(stragglers, conn)
	}
	m.mu.Unlock()

	m.Logger.Warn("grace period over; closing %d session(s)", len(stragglers))
	for _, conn := range stragglers {
		conn.Close()
	}
	<-done
}

func (m *ListenMode) closeAll() {
	for _, c := range m.Closers {
		if err := c.Close(); err != nil {
			m.Logger.Warn("close: %v", err)
		}
	}
}

// ── Metrics endpoint ─────────────────────────────────────────────────

func (m *ListenMode) serveMetrics() (stop func(), err error) {
	ln, err := net.Listen("tcp", m.MetricsAddress)
	if err != nil {
		return nil, fmt.Errorf("metrics listener on %s: %w", m.MetricsAddress, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	m.Logger.Info("serving metrics on http://%s/metrics", ln.Addr())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.Logger.Error("metrics server: %v", err)
		}
	}()
	return func() { srv.Close() }, nil
}
