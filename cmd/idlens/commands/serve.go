package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"idlens/internal/platform/httpserver"
	"idlens/internal/platform/metrics"
	"idlens/internal/view"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the identity page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			a, err := newApp(ctx, cfg, log, reg)
			if err != nil {
				return err
			}
			srv := httpserver.New(cfg.Addr, view.NewRouter(a.handler, log, metrics.New(reg), reg))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return a.audit.Run(gctx)
			})
			g.Go(func() error {
				log.InfoContext(gctx, "starting idlens",
					"addr", cfg.Addr,
					"demo", cfg.DemoMode(),
					"ordering", cfg.Ordering,
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
				defer cancel()
				err := srv.Shutdown(shutdownCtx)
				a.close()
				log.Info("idlens stopped")
				return err
			})

			a.controller.Start(ctx, cfg.IdentityKey)
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides IDLENS_ADDR)")
	return cmd
}
