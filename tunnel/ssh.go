// Package tunnel carries client connections to a weather server through
// an SSH gateway, for networks where the server port is not directly
// reachable.  The tunnel is transport only: frames pass through it
// unchanged.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	wxerr "wxcipher/internal/errors"
	"wxcipher/util"
)

// Config holds everything needed to dial an SSH gateway.
type Config struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration
}

func (c *Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SSHTunnel forwards TCP connections with ssh.Client.Dial.
type SSHTunnel struct {
	config *Config
	logger *util.Logger

	mu     sync.RWMutex
	client *ssh.Client
	alive  bool
}

// NewSSHTunnel returns a tunnel that is ready to Connect.
func NewSSHTunnel(cfg *Config, logger *util.Logger) *SSHTunnel {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	return &SSHTunnel{config: cfg, logger: logger}
}

// Connect dials the gateway and completes the handshake.
func (t *SSHTunnel) Connect(ctx context.Context) error {
	auth, err := AuthMethods(t.config, util.ReadSecret)
	if err != nil {
		return wxerr.WrapSSH("auth", t.config.Host, t.config.Port, err)
	}
	hk, err := HostKeyCallback(t.config)
	if err != nil {
		return wxerr.WrapSSH("hostkey", t.config.Host, t.config.Port, err)
	}
	return t.connect(ctx, &ssh.ClientConfig{
		User:            t.config.User,
		Auth:            auth,
		HostKeyCallback: hk,
		Timeout:         t.config.ConnTimeout,
	})
}

func (t *SSHTunnel) connect(ctx context.Context, sshCfg *ssh.ClientConfig) error {
	addr := t.config.addr()
	t.logger.Debug("dialing %s as %s", addr, sshCfg.User)

	dialer := net.Dialer{Timeout: t.config.ConnTimeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return wxerr.Wrap("dial", addr, err)
	}

	// The handshake itself is not context-aware; bound it with a
	// deadline instead.
	if dl, ok := ctx.Deadline(); ok {
		tcpConn.SetDeadline(dl) //nolint:errcheck
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, sshCfg)
	if err != nil {
		tcpConn.Close()
		return wxerr.WrapSSH("handshake", t.config.Host, t.config.Port, err)
	}
	tcpConn.SetDeadline(time.Time{}) //nolint:errcheck

	client := ssh.NewClient(sshConn, chans, reqs)

	t.mu.Lock()
	t.client = client
	t.alive = true
	t.mu.Unlock()

	go t.monitor(client)
	return nil
}

// Dial opens a TCP connection to address from the gateway's side.
func (t *SSHTunnel) Dial(ctx context.Context, address string) (net.Conn, error) {
	t.mu.RLock()
	client, alive := t.client, t.alive
	t.mu.RUnlock()

	if !alive || client == nil {
		return nil, wxerr.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.logger.Debug("forwarding to %s", address)
	conn, err := client.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("tunnel dial %s: %w", address, err)
	}
	return conn, nil
}

// Close shuts down the SSH connection.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alive = false
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// IsAlive reports whether the SSH connection is still up.
func (t *SSHTunnel) IsAlive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.alive
}

func (t *SSHTunnel) monitor(client *ssh.Client) {
	err := client.Wait()

	t.mu.Lock()
	if t.client == client {
		t.alive = false
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.Debug("ssh connection closed: %v", err)
	} else {
		t.logger.Debug("ssh connection closed")
	}
}
