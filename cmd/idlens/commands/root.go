package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"idlens/internal/platform/config"
	"idlens/internal/platform/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the idlens command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "idlens",
		Short: "idlens - resolve and search identities through a discovery service",
		Long: `idlens resolves the identity behind a configured public key and lets
users search for other identities as they type. It serves a small web page and
JSON API, and offers the same lookups from the command line.

Without IDLENS_DISCOVERY_URL it answers from built-in demo fixtures.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $IDLENS_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newResolveCmd(opts),
		newSearchCmd(opts),
	)
	return root
}

// Execute runs the root command and prints any error.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		newPrinter(root.ErrOrStderr()).Failure("%v\n", err)
	}
	return err
}

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func (o *rootOptions) load(cmd *cobra.Command) (config.Server, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Server{}, nil, fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log), nil
}
