package transport

import (
	"context"
	"fmt"
	"sync"

	"wxcipher/internal/wire"
	"wxcipher/tunnel"
	"wxcipher/util"
)

// SSHDialer reaches the server through an SSH gateway.  The tunnel is
// connected lazily on the first Dial and torn down on Close.
type SSHDialer struct {
	tunnel *tunnel.SSHTunnel
	config *tunnel.Config
	frame  wire.Options
	logger *util.Logger

	mu        sync.Mutex
	connected bool
}

// NewSSHDialer creates a dialer that forwards through cfg's gateway.
func NewSSHDialer(cfg *tunnel.Config, frame wire.Options, logger *util.Logger) *SSHDialer {
	return &SSHDialer{
		tunnel: tunnel.NewSSHTunnel(cfg, logger),
		config: cfg,
		frame:  frame,
		logger: logger,
	}
}

func (d *SSHDialer) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected && d.tunnel.IsAlive() {
		return nil
	}

	d.logger.Verbose("establishing SSH tunnel to %s@%s:%d", d.config.User, d.config.Host, d.config.Port)
	if err := d.tunnel.Connect(ctx); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}
	d.connected = true
	d.logger.Verbose("SSH tunnel established")
	return nil
}

// Dial connects to address from the gateway and frames the stream.
func (d *SSHDialer) Dial(ctx context.Context, address string) (wire.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	nc, err := d.tunnel.Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	return wire.NewStreamConn(nc, d.frame), nil
}

// Close tears down the tunnel.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}
	d.connected = false
	return d.tunnel.Close()
}
