package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/httpserver"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/registry/handler"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/registry/service"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// runServe wires the registry, exposes the HTTP router and keeps the server
// lifecycle small.
func runServe(ctx context.Context, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := service.New(a.repo, service.WithLogger(opts.logger))
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Handle("/metrics", a.metrics.Handler())
	handler.New(svc, opts.logger, a.metrics, opts.cfg.Server.RequestTimeout).Register(router)

	srv := httpserver.New(opts.cfg.Server, router)
	errCh := make(chan error, 1)
	go func() {
		opts.logger.Info("starting cpm", "addr", opts.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.cfg.Server.ShutdownTimeout)
	defer cancel()
	opts.logger.Info("shutting down", "timeout", opts.cfg.Server.ShutdownTimeout)
	return srv.Shutdown(shutdownCtx)
}
