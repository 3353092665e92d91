package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/etl/load"
)

func newConsumeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Replay events from the Kafka event topic until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsume(cmd.Context(), opts)
		},
	}
}

func runConsume(ctx context.Context, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	loader, err := load.New(a.repo, load.WithLogger(opts.logger))
	if err != nil {
		return err
	}
	source, err := load.NewKafkaSource(opts.cfg.Kafka, load.WithKafkaLogger(opts.logger))
	if err != nil {
		return err
	}
	defer source.Close()

	if err := source.EnsureTopic(ctx); err != nil {
		return err
	}
	opts.logger.InfoContext(ctx, "consuming events",
		"topic", opts.cfg.Kafka.Topic,
		"group", opts.cfg.Kafka.Group,
	)
	if err := source.Consume(ctx, loader); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
