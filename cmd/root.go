// Package cmd wires up the CLI and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"wxcipher/config"
	"wxcipher/util"
)

// readSecret prompts for a password.  Tests replace it.
var readSecret = util.ReadSecret //nolint:gochecknoglobals

// Execute parses args and runs the selected command.
//
// Configuration is layered before the command tree is built so that
// flag defaults already carry the file and environment values and an
// explicit flag wins over both.
func Execute(ctx context.Context, args []string) error {
	cfg := config.New()
	if path := configPath(args); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	root := newRootCmd(cfg)
	root.SetArgs(args)
	return fang.Execute(ctx, root, fang.WithVersion(versioninfo.Short()))
}

// configPath finds --config among args without parsing anything else.
func configPath(args []string) string {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	path := fs.StringP("config", "c", os.Getenv("WXC_CONFIG"), "")
	fs.BoolP("help", "h", false, "")
	fs.Parse(args) //nolint:errcheck
	return *path
}

// newRootCmd builds the command tree around cfg.
func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		configFile string
		verbose    int
		quiet      bool
	)

	root := &cobra.Command{
		Use:   "wxcipher",
		Short: "Weather queries over an authenticated, ciphered session",
		Long: `wxcipher serves weather records to authenticated clients.  After
logging in, a client picks a classical cipher (Caesar, Vigenère or
Atbash) and every record it receives is encoded with it.`,
		Version:       versioninfo.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case quiet:
				cfg.Verbose = 0
			case cmd.Flags().Changed("verbose"):
				cfg.Verbose = config.DefaultVerbose + verbose
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", configFile, "TOML configuration file (env WXC_CONFIG)")
	pf.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Log errors only")
	pf.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also append log output to this file")

	root.AddCommand(
		newServeCmd(cfg),
		newConnectCmd(cfg),
		newUserCmd(cfg),
	)
	return root
}

// newLogger builds the logger for cfg.  The returned func releases the
// log file, if any.
func newLogger(cfg *config.Config, stderr io.Writer) (*util.Logger, func(), error) {
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)
	if cfg.LogFile == "" {
		return logger, func() {}, nil
	}
	f, err := logger.TeeFile(cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	logger.SetTimestamps(true)
	return logger, func() { f.Close() }, nil
}
