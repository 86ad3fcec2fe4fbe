package config

import (
	"errors"
	"strings"
	"testing"

	wxerr "wxcipher/internal/errors"
)

func validServer() *Config {
	cfg := New()
	cfg.Users = map[string]string{"user1": "password1"}
	cfg.Records = map[string]string{"Athens": "City: Athens\n"}
	return cfg
}

func validClient() *Config {
	cfg := New()
	cfg.Host = DefaultHost
	cfg.Port = DefaultPort
	cfg.Username = "user1"
	cfg.Cipher = "Caesar:3"
	return cfg
}

func TestValidateServer(t *testing.T) {
	if err := validServer().ValidateServer(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantHint  bool
	}{
		{"bad listen", func(c *Config) { c.ListenAddress = "65432" }, "listen", true},
		{"listen port range", func(c *Config) { c.ListenAddress = "127.0.0.1:70000" }, "listen", true},
		{"bad network", func(c *Config) { c.Network = "udp" }, "network", false},
		{"tiny frame", func(c *Config) { c.MaxFrameSize = 8 }, "max-frame", false},
		{"negative grace", func(c *Config) { c.GracePeriod = -1 }, "grace", false},
		{"no records", func(c *Config) { c.Records = nil }, "api-key", true},
		{"no users", func(c *Config) { c.Users = nil }, "userdb", true},
		{"bad default key", func(c *Config) { c.DefaultKey = "k3y" }, "default-key", false},
		{"bad metrics", func(c *Config) { c.MetricsAddress = "nope" }, "metrics", false},
		{"bad provider url", func(c *Config) { c.APIKey = "k"; c.ProviderURL = "/relative" }, "provider-url", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validServer()
			tt.mutate(cfg)
			err := cfg.ValidateServer()

			var ce *wxerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("want *ConfigError, got %v", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
			if tt.wantHint && !strings.Contains(err.Error(), "hint:") {
				t.Errorf("error %q should carry a hint", err.Error())
			}
		})
	}
}

func TestValidateServer_UserDBSuffices(t *testing.T) {
	cfg := validServer()
	cfg.Users = nil
	cfg.UserDB = "users.db"
	if err := cfg.ValidateServer(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateClient(t *testing.T) {
	if err := validClient().ValidateClient(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"no host", func(c *Config) { c.Host = "" }, "host"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port"},
		{"no user", func(c *Config) { c.Username = "" }, "user"},
		{"unknown cipher", func(c *Config) { c.Cipher = "Enigma" }, "cipher"},
		{"bad shift", func(c *Config) { c.Cipher = "Caesar:x" }, "cipher"},
		{"no attempts", func(c *Config) { c.DialAttempts = 0 }, "attempts"},
		{"ws over tunnel", func(c *Config) {
			c.Network = NetworkWS
			c.TunnelEnabled = true
			c.TunnelHost = "bastion"
		}, "network"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validClient()
			tt.mutate(cfg)
			var ce *wxerr.ConfigError
			if err := cfg.ValidateClient(); !errors.As(err, &ce) {
				t.Fatalf("want *ConfigError, got %v", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

func TestValidateClient_CipherHint(t *testing.T) {
	cfg := validClient()
	cfg.Cipher = "Enigma"
	err := cfg.ValidateClient()
	if err == nil || !strings.Contains(err.Error(), "CAESAR") {
		t.Fatalf("hint should list variants: %v", err)
	}
}
