// Package transport establishes client connections and hands them back
// already framed.  Transports handle the "how" of reaching a server
// (plain TCP, WebSocket, or TCP through an SSH gateway) independent of
// the protocol spoken over the connection.
package transport

import (
	"context"
	"fmt"

	"wxcipher/internal/wire"
)

// Network names a listener/dialer flavour.
const (
	NetworkTCP = "tcp"
	NetworkWS  = "ws"
)

// Dialer opens outbound framed connections.
type Dialer interface {
	// Dial connects to address ("host:port", or a ws:// URL for the
	// WebSocket dialer).
	Dial(ctx context.Context, address string) (wire.Conn, error)

	// Close releases long-lived resources such as an SSH session.
	// Stateless dialers return nil.
	Close() error
}

// CheckNetwork rejects unknown network names.
func CheckNetwork(network string) error {
	switch network {
	case NetworkTCP, NetworkWS:
		return nil
	}
	return fmt.Errorf("unknown network %q (want %q or %q)", network, NetworkTCP, NetworkWS)
}
