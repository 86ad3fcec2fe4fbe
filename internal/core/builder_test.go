package core

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"wxcipher/config"
	"wxcipher/internal/capability"
	"wxcipher/internal/cipher"
	"wxcipher/internal/transport"
	"wxcipher/internal/userdb/boltuserdb"
	"wxcipher/util"
)

func serverConfig() *config.Config {
	cfg := config.New()
	cfg.Users = map[string]string{"user1": "password1"}
	cfg.Records = map[string]string{"Athens": "City: Athens\n"}
	return cfg
}

// TestBuildServer_Static verifies the in-memory collaborators are
// chosen when no database or API key is configured.
func TestBuildServer_Static(t *testing.T) {
	mode, err := BuildServer(serverConfig(), util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	srv, ok := mode.Capability.(*capability.Server)
	if !ok {
		t.Fatalf("expected *capability.Server, got %T", mode.Capability)
	}
	if srv.Defaults != (cipher.Params{Shift: 3, Key: "key"}) {
		t.Errorf("Defaults = %+v", srv.Defaults)
	}
	if len(mode.Closers) != 0 {
		t.Errorf("static store should not need closing")
	}
	if mode.GracePeriod != config.DefaultGracePeriod {
		t.Errorf("GracePeriod = %v", mode.GracePeriod)
	}

	ok, err = srv.Auth.Verify(context.Background(), "user1", "password1")
	if err != nil || !ok {
		t.Errorf("Verify(user1) = %v, %v", ok, err)
	}
	rec, err := srv.Provider.Fetch(context.Background(), "athens")
	if err != nil || rec != "City: Athens\n" {
		t.Errorf("Fetch = %q, %v", rec, err)
	}
}

// TestBuildServer_BoltUserDB verifies the database is opened and
// handed to the mode for closing.
func TestBuildServer_BoltUserDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	db, err := boltuserdb.New(path, boltuserdb.WithScryptParams(1<<10, 8, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Add("user2", "password2", false); err != nil {
		t.Fatal(err)
	}
	db.Close()

	cfg := serverConfig()
	cfg.Users = nil
	cfg.UserDB = path

	mode, err := BuildServer(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(mode.Closers) != 1 {
		t.Fatalf("Closers = %d, want 1", len(mode.Closers))
	}
	defer mode.Closers[0].Close()

	srv := mode.Capability.(*capability.Server)
	ok, err := srv.Auth.Verify(context.Background(), "user2", "password2")
	if err != nil || !ok {
		t.Errorf("Verify(user2) = %v, %v", ok, err)
	}
}

func TestBuildClient(t *testing.T) {
	cfg := config.New()
	cfg.Host = "127.0.0.1"
	cfg.Port = 65432
	cfg.Username = "user1"
	cfg.Cipher = "vigenere"

	mode, err := BuildClient(cfg, "password1", util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	if mode.Address != "127.0.0.1:65432" {
		t.Errorf("Address = %q", mode.Address)
	}
	if _, ok := mode.Dialer.(*transport.TCPDialer); !ok {
		t.Errorf("expected *transport.TCPDialer, got %T", mode.Dialer)
	}
	cli := mode.Capability.(*capability.Client)
	want := cipher.Spec{Variant: cipher.Vigenere, Params: cipher.Params{Key: "key"}}
	if cli.Cipher != want {
		t.Errorf("Cipher = %+v, want %+v", cli.Cipher, want)
	}
	if cli.Secret != "password1" {
		t.Errorf("Secret not passed through")
	}
	if mode.Backoff.MaxAttempts != config.DefaultDialAttempts {
		t.Errorf("MaxAttempts = %d", mode.Backoff.MaxAttempts)
	}
}

func TestBuildClient_Dialers(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"websocket", func(c *config.Config) { c.Network = config.NetworkWS }, "*transport.WSDialer"},
		{"tunnel", func(c *config.Config) {
			c.TunnelSpec = "ops@bastion"
			if err := c.ApplyTunnelSpec(); err != nil {
				t.Fatal(err)
			}
		}, "*transport.SSHDialer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Host, cfg.Port, cfg.Username = "127.0.0.1", 65432, "user1"
			tt.mutate(cfg)
			mode, err := BuildClient(cfg, "pw", util.NewLogger(0))
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprintf("%T", mode.Dialer); got != tt.want {
				t.Errorf("dialer = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildClient_BadCipher(t *testing.T) {
	cfg := config.New()
	cfg.Cipher = "Caesar:three"
	if _, err := BuildClient(cfg, "", util.NewLogger(0)); err == nil {
		t.Fatal("expected cipher error")
	}
}
