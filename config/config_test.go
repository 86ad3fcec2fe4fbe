package config

import (
	"testing"

	"wxcipher/internal/provider"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"zero port", "host:0", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestApplyTunnelSpec(t *testing.T) {
	cfg := New()
	cfg.TunnelSpec = "ops@bastion:2222"
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if !cfg.TunnelEnabled || cfg.TunnelUser != "ops" || cfg.TunnelHost != "bastion" || cfg.TunnelPort != 2222 {
		t.Errorf("tunnel fields = %v %q %q %d", cfg.TunnelEnabled, cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}

	cfg.TunnelSpec = ""
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if cfg.TunnelEnabled {
		t.Error("empty spec should disable the tunnel")
	}
}

// ── Defaults ─────────────────────────────────────────────────────────

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	if cfg.ListenAddress != "127.0.0.1:65432" {
		t.Errorf("ListenAddress = %q", cfg.ListenAddress)
	}
	if cfg.Network != NetworkTCP {
		t.Errorf("Network = %q", cfg.Network)
	}
	if cfg.GracePeriod != DefaultGracePeriod {
		t.Errorf("GracePeriod = %v", cfg.GracePeriod)
	}
	if cfg.DefaultShift != 3 || cfg.DefaultKey != "key" {
		t.Errorf("cipher defaults = %d, %q", cfg.DefaultShift, cfg.DefaultKey)
	}
	if cfg.MaxFrameSize != 64<<10 {
		t.Errorf("MaxFrameSize = %d", cfg.MaxFrameSize)
	}
	if cfg.Verbose != 1 {
		t.Errorf("Verbose = %d, want notices on by default", cfg.Verbose)
	}
	if cfg.ProviderURL != provider.DefaultOpenWeatherURL {
		t.Errorf("ProviderURL = %q, want %q", cfg.ProviderURL, provider.DefaultOpenWeatherURL)
	}
}
