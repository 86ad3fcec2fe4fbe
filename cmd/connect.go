package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"wxcipher/config"
	"wxcipher/internal/core"
	wxerr "wxcipher/internal/errors"
)

func newConnectCmd(cfg *config.Config) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "connect [host] [port]",
		Short: "Open an interactive session",
		Long: `Log in to a wxcipher server, select a cipher and query locations.
Each line read from standard input is sent as a query; the decoded
record is printed.  Type "exit" or close the input to disconnect.

The password is read from WXC_SECRET or prompted for.`,
		Example: `  wxcipher connect -u user1 --cipher Caesar:5
  wxcipher connect wx.example.com 65432 -u user1 --cipher Vigenère:lemon
  wxcipher connect -T ops@bastion db-internal 65432 -u user1`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyTarget(cfg, args); err != nil {
				return err
			}
			if err := cfg.ApplyTunnelSpec(); err != nil {
				return fmt.Errorf("tunnel: %w", err)
			}
			if err := cfg.ValidateClient(); err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
				return nil
			}

			secret, err := clientSecret(cfg.Username)
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			mode, err := core.BuildClient(cfg, secret, logger)
			if err != nil {
				return err
			}
			mode.Stdin = cmd.InOrStdin()
			mode.Stdout = cmd.OutOrStdout()

			err = mode.Run(cmd.Context())
			if errors.Is(err, wxerr.ErrAuthFailed) {
				return fmt.Errorf("login as %q refused by the server", cfg.Username)
			}
			return err
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.Username, "user", "u", cfg.Username, "Username (env WXC_USER)")
	fs.StringVar(&cfg.Cipher, "cipher", cfg.Cipher, "Cipher selection: Caesar[:shift], Vigenère[:key], Atbash or None")
	fs.StringVar(&cfg.Network, "network", cfg.Network, "Transport: tcp or ws")
	fs.StringVar(&cfg.WebSocketPath, "ws-path", cfg.WebSocketPath, "HTTP path of the ws endpoint")
	fs.DurationVarP(&cfg.Timeout, "timeout", "w", cfg.Timeout, "Connection timeout")
	fs.IntVar(&cfg.DialAttempts, "attempts", cfg.DialAttempts, "Connection attempts before giving up")
	fs.IntVar(&cfg.MaxFrameSize, "max-frame", cfg.MaxFrameSize, "Largest accepted frame in bytes")
	fs.IntVar(&cfg.DefaultShift, "default-shift", cfg.DefaultShift, "Caesar shift when --cipher names none")
	fs.StringVar(&cfg.DefaultKey, "default-key", cfg.DefaultKey, "Vigenère key when --cipher names none")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")
	return cmd
}

// applyTarget takes host and port from the positional arguments,
// falling back to the configured or default target.
func applyTarget(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		cfg.Host = args[0]
	}
	if len(args) > 1 {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return &wxerr.ConfigError{Field: "port", Value: args[1], Message: "not a number"}
		}
		cfg.Port = port
	}
	if cfg.Host == "" {
		cfg.Host = config.DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = config.DefaultPort
	}
	return nil
}

func clientSecret(user string) (string, error) {
	if s, ok := os.LookupEnv("WXC_SECRET"); ok {
		return s, nil
	}
	return readSecret(fmt.Sprintf("Password for %s: ", user))
}
