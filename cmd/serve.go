package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"wxcipher/config"
	"wxcipher/internal/core"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept client sessions",
		Long: `Listen for clients, authenticate them against the user database and
answer their weather queries with the cipher each one selects.

Records come from OpenWeather when an API key is set (WXC_API_KEY or
[Provider] APIKey), otherwise from the [Provider.Records] table of the
configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
				return nil
			}

			logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			mode, err := core.BuildServer(cfg, logger)
			if err != nil {
				return err
			}
			return mode.Run(cmd.Context())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.ListenAddress, "listen", "l", cfg.ListenAddress, "Address to listen on")
	fs.StringVar(&cfg.Network, "network", cfg.Network, "Transport: tcp or ws")
	fs.StringVar(&cfg.WebSocketPath, "ws-path", cfg.WebSocketPath, "HTTP path served in ws mode")
	fs.IntVar(&cfg.MaxConnections, "max-conns", cfg.MaxConnections, "Maximum concurrent connections (0 = unlimited)")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "Close sessions idle for this long")
	fs.DurationVar(&cfg.GracePeriod, "grace", cfg.GracePeriod, "Time allowed for sessions to finish on shutdown")
	fs.IntVar(&cfg.MaxFrameSize, "max-frame", cfg.MaxFrameSize, "Largest accepted frame in bytes")
	fs.StringVar(&cfg.MetricsAddress, "metrics", cfg.MetricsAddress, "Serve Prometheus metrics on this address")
	fs.StringVar(&cfg.UserDB, "userdb", cfg.UserDB, "User database file")
	fs.StringVar(&cfg.ProviderURL, "provider-url", cfg.ProviderURL, "OpenWeather endpoint")
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "Upstream lookup timeout")
	fs.IntVar(&cfg.DefaultShift, "default-shift", cfg.DefaultShift, "Caesar shift when the client names none")
	fs.StringVar(&cfg.DefaultKey, "default-key", cfg.DefaultKey, "Vigenère key when the client names none")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")
	return cmd
}
