package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

func newGetCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read a single entity and print it as JSON",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "product-team <id-or-alias>",
		Short: "Read a product team by id or alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			team, err := a.repo.ProductTeams().Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), team)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "product <team-id> <product-id-or-party-key>",
		Short: "Read a product within its team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			product, err := a.repo.Products().Read(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), product)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "device <device-id>",
		Short: "Read a device by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			device, err := a.repo.Devices().Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), device)
		},
	})

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
