package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/strikecast/strikecast/internal/interfaces/http"
	"github.com/strikecast/strikecast/internal/marketdata"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the read-only screening API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			serverCfg := a.cfg.Server
			if addr != "" {
				serverCfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			probe := "SPY"
			if len(a.cfg.Watchlist) > 0 {
				probe = a.cfg.Watchlist[0]
			}
			health := marketdata.NewHealthMonitor(a.provider, probe, a.log)
			go health.Run(ctx, 30*time.Second)

			srv := httpapi.NewServer(serverCfg, a.engine, health, a.metrics, a.log)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address override (default from config)")
	return cmd
}
