package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/nathsou/disk-analyzer/internal/logging"
	"github.com/nathsou/disk-analyzer/internal/metrics"
	"github.com/nathsou/disk-analyzer/internal/tui"
)

func newBrowseCmd(a *app) *cobra.Command {
	var sizes bool

	cmd := &cobra.Command{
		Use:   "browse [path]",
		Short: "Browse the remote filesystem in the terminal",
		Long: `Open the terminal browser on path, or on the home directory of the
explored machine.

Keys: enter opens a directory, backspace goes up, esc goes back, tab
switches between the listing and the largest-entries report, s toggles
directory sizes, r reloads, 1-9 jump to a breadcrumb, q quits.

With --metrics-addr, Prometheus metrics are served on /metrics while the
browser runs. Logs only go to log.file, never to the terminal.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{ownsTerminal: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("browse requires an interactive terminal")
			}
			ctx := cmd.Context()

			var start string
			if len(args) > 0 {
				path, _, err := a.target(ctx, args)
				if err != nil {
					return err
				}
				start = path
			}

			if addr := a.cfg.MetricsAddr; addr != "" {
				stop := serveMetrics(addr, a.log)
				defer stop()
			}

			return tui.Run(ctx, tui.Options{
				Explorer:     a.ex,
				Sizes:        a.sizes(),
				Limits:       a.limits(),
				ShowDirSizes: sizes,
				Start:        start,
				Online:       a.client.IsOnline,
				Logger:       logging.Named("tui"),
			})
		},
	}
	cmd.Flags().BoolVarP(&sizes, "sizes", "s", false, "start with directory sizes")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	addLimitFlags(cmd)
	return cmd
}

// serveMetrics exposes the metrics endpoint until the returned function is
// called.
func serveMetrics(addr string, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           logging.Middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown", zap.Error(err))
		}
	}
}
