package config

// loader.go - configuration loading from a TOML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd)
//   2. Environment variables  (LoadFromEnv)
//   3. Config file  (LoadFile)
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ── Config file ──────────────────────────────────────────────────────
//
// The file mirrors Config in sections.  Every field is optional: only
// keys present in the file override the existing value.  Durations are
// whole seconds.

type fileConfig struct {
	Server   *fileServer
	Provider *fileProvider
	Cipher   *fileCipher
	Client   *fileClient
	Logging  *fileLogging
	Users    map[string]string
}

type fileServer struct {
	Address        *string
	Network        *string
	WebSocketPath  *string
	MaxConnections *int
	IdleTimeout    *int
	GracePeriod    *int
	MaxFrameSize   *int
	MetricsAddress *string
	UserDB         *string
}

type fileProvider struct {
	URL             *string
	APIKey          *string
	Timeout         *int
	BreakerFailures *int
	BreakerCooldown *int
	Records         map[string]string
}

type fileCipher struct {
	Selection *string
	Shift     *int
	Key       *string
}

type fileClient struct {
	Host          *string
	Port          *int
	Username      *string
	Timeout       *int
	DialAttempts  *int
	Tunnel        *string
	SSHKey        *string
	SSHAgent      *bool
	StrictHostKey *bool
	KnownHosts    *string
}

type fileLogging struct {
	Verbose *int
	File    *string
}

// Load decodes the TOML document b onto cfg.  Unknown keys are an
// error so that typos do not pass silently.
func Load(b []byte, cfg *Config) error {
	var fc fileConfig
	md, err := toml.Decode(string(b), &fc)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return fmt.Errorf("config: undecoded keys in config file: %v", undecoded)
	}
	fc.apply(cfg)
	return nil
}

// LoadFile reads path and applies it to cfg with Load.
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := Load(b, cfg); err != nil {
		return fmt.Errorf("%w (in %s)", err, path)
	}
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	if s := fc.Server; s != nil {
		setString(&cfg.ListenAddress, s.Address)
		setString(&cfg.Network, s.Network)
		setString(&cfg.WebSocketPath, s.WebSocketPath)
		setInt(&cfg.MaxConnections, s.MaxConnections)
		setSeconds(&cfg.IdleTimeout, s.IdleTimeout)
		setSeconds(&cfg.GracePeriod, s.GracePeriod)
		setInt(&cfg.MaxFrameSize, s.MaxFrameSize)
		setString(&cfg.MetricsAddress, s.MetricsAddress)
		setString(&cfg.UserDB, s.UserDB)
	}
	if p := fc.Provider; p != nil {
		setString(&cfg.ProviderURL, p.URL)
		setString(&cfg.APIKey, p.APIKey)
		setSeconds(&cfg.FetchTimeout, p.Timeout)
		setInt(&cfg.BreakerFailures, p.BreakerFailures)
		setSeconds(&cfg.BreakerCooldown, p.BreakerCooldown)
		if p.Records != nil {
			cfg.Records = p.Records
		}
	}
	if c := fc.Cipher; c != nil {
		setString(&cfg.Cipher, c.Selection)
		setInt(&cfg.DefaultShift, c.Shift)
		setString(&cfg.DefaultKey, c.Key)
	}
	if c := fc.Client; c != nil {
		setString(&cfg.Host, c.Host)
		setInt(&cfg.Port, c.Port)
		setString(&cfg.Username, c.Username)
		setSeconds(&cfg.Timeout, c.Timeout)
		setInt(&cfg.DialAttempts, c.DialAttempts)
		setString(&cfg.TunnelSpec, c.Tunnel)
		setString(&cfg.SSHKeyPath, c.SSHKey)
		setBool(&cfg.UseSSHAgent, c.SSHAgent)
		setBool(&cfg.StrictHostKey, c.StrictHostKey)
		setString(&cfg.KnownHostsPath, c.KnownHosts)
	}
	if l := fc.Logging; l != nil {
		setInt(&cfg.Verbose, l.Verbose)
		setString(&cfg.LogFile, l.File)
	}
	if fc.Users != nil {
		cfg.Users = fc.Users
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setSeconds(dst *time.Duration, v *int) {
	if v != nil {
		*dst = secondsDuration(*v)
	}
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the WXC_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	// Server
	if v := os.Getenv("WXC_LISTEN"); v != "" {
		cfg.ListenAddress = v
	}
	if v := os.Getenv("WXC_NETWORK"); v != "" {
		cfg.Network = strings.ToLower(v)
	}
	if v := envInt("WXC_MAX_CONNECTIONS"); v > 0 {
		cfg.MaxConnections = v
	}
	if v := envInt("WXC_IDLE_TIMEOUT"); v > 0 {
		cfg.IdleTimeout = secondsDuration(v)
	}
	if v := envInt("WXC_GRACE_PERIOD"); v > 0 {
		cfg.GracePeriod = secondsDuration(v)
	}
	if v := os.Getenv("WXC_METRICS"); v != "" {
		cfg.MetricsAddress = v
	}
	if v := os.Getenv("WXC_USERDB"); v != "" {
		cfg.UserDB = v
	}

	// Provider
	if v := os.Getenv("WXC_PROVIDER_URL"); v != "" {
		cfg.ProviderURL = v
	}
	if v := os.Getenv("WXC_API_KEY"); v != "" {
		cfg.APIKey = v
	}

	// Client
	if v := os.Getenv("WXC_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("WXC_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("WXC_USER"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("WXC_CIPHER"); v != "" {
		cfg.Cipher = v
	}
	if v := envInt("WXC_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}

	// SSH tunnel
	if v := os.Getenv("WXC_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("WXC_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("WXC_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("WXC_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("WXC_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("WXC_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("WXC_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if v := os.Getenv("WXC_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
