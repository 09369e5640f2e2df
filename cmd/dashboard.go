package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/earnusdc/internal/earn"
	"github.com/Mohsinsiddi/earnusdc/internal/metrics"
	"github.com/Mohsinsiddi/earnusdc/internal/ui"
	"github.com/spf13/cobra"
)

var dashboardMetricsAddr string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live view of your position, refreshed in the background",
	Long: `Open a full-screen dashboard that keeps your deposit, wallet balance
and APR up to date. Balances refresh every poll_interval seconds; press r
to refresh now.

With --metrics-addr, refresh and operation metrics are served in
Prometheus format at http://<addr>/metrics while the dashboard runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var rec earn.Recorder
		if dashboardMetricsAddr != "" {
			m := metrics.New()
			rec = m
			go func() {
				if err := metrics.Serve(ctx, dashboardMetricsAddr, m.Handler(), logger); err != nil {
					logger.Error("metrics server stopped", "err", err)
				}
			}()
		}

		s, err := openSession(ctx, rec)
		if err != nil {
			return err
		}
		defer s.Close()

		// A wrong network still shows the account; the dashboard reports it.
		if err := s.engine.Connect(ctx); err != nil && !errors.Is(err, earn.ErrWrongNetwork) {
			return err
		}
		if err := ui.RunDashboard(s.chain.Label(cfg.NetworkMode), s.engine); err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
}
