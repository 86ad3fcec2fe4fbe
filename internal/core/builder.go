package core

import (
	"fmt"
	"io"

	"wxcipher/config"
	"wxcipher/internal/capability"
	"wxcipher/internal/cipher"
	"wxcipher/internal/metrics"
	"wxcipher/internal/provider"
	"wxcipher/internal/retry"
	"wxcipher/internal/transport"
	"wxcipher/internal/userdb"
	"wxcipher/internal/userdb/boltuserdb"
	"wxcipher/internal/wire"
	"wxcipher/tunnel"
	"wxcipher/util"
)

// BuildServer assembles the dispatcher and its collaborators from cfg.
// The caller owns the returned mode; its Closers release the user DB
// when Run returns.
func BuildServer(cfg *config.Config, logger *util.Logger) (*ListenMode, error) {
	auth, closer, err := buildAuthenticator(cfg)
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	mode := &ListenMode{
		Address:        cfg.ListenAddress,
		Network:        cfg.Network,
		WebSocketPath:  cfg.WebSocketPath,
		MaxConnections: cfg.MaxConnections,
		IdleTimeout:    cfg.IdleTimeout,
		GracePeriod:    cfg.GracePeriod,
		MaxFrameSize:   cfg.MaxFrameSize,
		Capability: &capability.Server{
			Auth:         auth,
			Provider:     buildProvider(cfg, logger),
			Metrics:      m,
			Defaults:     cipher.Params{Shift: cfg.DefaultShift, Key: cfg.DefaultKey},
			FetchTimeout: cfg.FetchTimeout,
		},
		Logger:         logger,
		Metrics:        m,
		MetricsAddress: cfg.MetricsAddress,
	}
	if closer != nil {
		mode.Closers = append(mode.Closers, closer)
	}
	return mode, nil
}

// BuildClient assembles the interactive client.  secret is the
// already-prompted password for cfg.Username.
func BuildClient(cfg *config.Config, secret string, logger *util.Logger) (*ConnectMode, error) {
	spec, err := cipher.ParseSelection(cfg.Cipher, cipher.Params{Shift: cfg.DefaultShift, Key: cfg.DefaultKey})
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}

	return &ConnectMode{
		Dialer: buildDialer(cfg, logger),
		Capability: &capability.Client{
			Username: cfg.Username,
			Secret:   secret,
			Cipher:   spec,
			Prompt:   "> ",
		},
		Address: util.FormatAddr(cfg.Host, cfg.Port),
		Logger:  logger,
		Backoff: &retry.Backoff{
			InitialDelay: retry.DefaultBackoff().InitialDelay,
			MaxDelay:     retry.DefaultBackoff().MaxDelay,
			MaxAttempts:  cfg.DialAttempts,
		},
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

func buildAuthenticator(cfg *config.Config) (userdb.Authenticator, io.Closer, error) {
	if cfg.UserDB == "" {
		return userdb.Static(cfg.Users), nil, nil
	}
	db, err := boltuserdb.New(cfg.UserDB)
	if err != nil {
		return nil, nil, fmt.Errorf("user database %s: %w", cfg.UserDB, err)
	}
	return db, db, nil
}

// buildProvider queries OpenWeather when an API key is configured and
// serves the static records otherwise.
func buildProvider(cfg *config.Config, logger *util.Logger) provider.Provider {
	if cfg.APIKey == "" {
		return provider.NewStatic(cfg.Records)
	}

	log := logger.Named("provider")
	cb := retry.NewCircuitBreaker(provider.BreakerConfig(retry.BreakerConfig{
		MaxFailures: cfg.BreakerFailures,
		Cooldown:    cfg.BreakerCooldown,
		OnStateChange: func(from, to retry.State) {
			log.Warn("upstream circuit %s -> %s", from, to)
		},
	}))
	return provider.WithBreaker(provider.NewOpenWeather(cfg.ProviderURL, cfg.APIKey, cfg.FetchTimeout), cb)
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	frame := wire.Options{MaxFrameSize: cfg.MaxFrameSize}

	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.Config{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, frame, logger)
	}

	if cfg.Network == config.NetworkWS {
		return &transport.WSDialer{Path: cfg.WebSocketPath, Frame: frame}
	}

	return &transport.TCPDialer{
		Timeout: cfg.Timeout,
		Frame:   frame,
	}
}
