// Package config defines the runtime configuration for wxcipher and
// provides helpers for parsing tunnel specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Config holds every tuneable for a wxcipher server or client.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	ListenAddress  string
	Network        string // "tcp" or "ws"
	WebSocketPath  string
	MaxConnections int // 0 = unlimited
	IdleTimeout    time.Duration
	GracePeriod    time.Duration
	MaxFrameSize   int
	MetricsAddress string // empty disables the /metrics endpoint

	// ── Credentials ──────────────────────────────────────────────────
	UserDB string            // bolt database path
	Users  map[string]string // static users, used when UserDB is empty

	// ── Records ──────────────────────────────────────────────────────
	ProviderURL     string
	APIKey          string
	FetchTimeout    time.Duration
	Records         map[string]string // static records, used when APIKey is empty
	BreakerFailures int
	BreakerCooldown time.Duration

	// ── Ciphers ──────────────────────────────────────────────────────
	Cipher       string // client selection, e.g. "Caesar:5"
	DefaultShift int
	DefaultKey   string

	// ── Client ───────────────────────────────────────────────────────
	Host         string
	Port         int
	Username     string
	Timeout      time.Duration
	DialAttempts int

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	LogFile string
}

// New returns a Config populated with the defaults.
func New() *Config {
	return &Config{
		ListenAddress:   DefaultListenAddress,
		Network:         NetworkTCP,
		WebSocketPath:   DefaultWebSocketPath,
		IdleTimeout:     DefaultIdleTimeout,
		GracePeriod:     DefaultGracePeriod,
		MaxFrameSize:    DefaultMaxFrameSize,
		ProviderURL:     DefaultProviderURL,
		FetchTimeout:    DefaultFetchTimeout,
		BreakerFailures: DefaultBreakerFailures,
		BreakerCooldown: DefaultBreakerCooldown,
		DefaultShift:    DefaultShift,
		DefaultKey:      DefaultKey,
		Verbose:         DefaultVerbose,
		Timeout:         DefaultConnTimeout,
		DialAttempts:    DefaultDialAttempts,
		TunnelPort:      DefaultSSHPort,
	}
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the individual tunnel fields.
// An empty spec disables the tunnel.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return err
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}
