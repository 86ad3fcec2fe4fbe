package config

import (
	"time"

	"wxcipher/internal/provider"
)

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

// Transport networks accepted by Network.
const (
	NetworkTCP = "tcp"
	NetworkWS  = "ws"
)

const (
	// DefaultListenAddress is where the server binds when nothing else
	// is configured.
	DefaultListenAddress = "127.0.0.1:65432"

	// DefaultHost and DefaultPort are the client's default target.
	DefaultHost = "127.0.0.1"
	DefaultPort = 65432

	// DefaultWebSocketPath is the HTTP path served in ws mode.
	DefaultWebSocketPath = "/wx"

	// DefaultMaxFrameSize bounds a single frame payload.
	DefaultMaxFrameSize = 64 << 10

	// DefaultIdleTimeout is how long a session may sit between frames.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultVerbose logs notices and warnings but not per-session
	// detail.
	DefaultVerbose = 1

	// DefaultGracePeriod is how long shutdown waits for sessions to
	// finish before closing their connections.
	DefaultGracePeriod = 5 * time.Second

	// DefaultProviderURL is the OpenWeather current-weather endpoint.
	DefaultProviderURL = provider.DefaultOpenWeatherURL

	// DefaultFetchTimeout bounds one upstream lookup.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultBreakerFailures consecutive upstream failures open the
	// circuit for DefaultBreakerCooldown.
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second

	// DefaultShift and DefaultKey fill in a selection that names a
	// variant without its parameter.
	DefaultShift = 3
	DefaultKey   = "key"

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultDialAttempts is how many times the client tries to reach
	// the server before giving up.
	DefaultDialAttempts = 3
)
