package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/config"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/logger"
)

// rootOptions holds global flags and the state every subcommand shares.
type rootOptions struct {
	ConfigPath string
	Backend    string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "cpm",
		Short:         "Connecting Party Manager registry",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.Backend != "" {
				cfg.Storage.Backend = opts.Backend
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			opts.cfg = cfg
			opts.logger = logger.New(cfg.Log)
			slog.SetDefault(opts.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend override (memory|dynamodb|postgres|redis)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newLoadCommand(opts))
	cmd.AddCommand(newConsumeCommand(opts))
	cmd.AddCommand(newGetCommand(opts))

	return cmd
}
