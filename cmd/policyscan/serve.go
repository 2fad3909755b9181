package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"PolicyScan/internal/analysis"
	"PolicyScan/internal/collector"
	"PolicyScan/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		// GET /portfolio is disabled when the source cannot be built.
		var col *collector.Collector
		if fetcher, err := collector.NewFetcher(cfg); err != nil {
			zap.L().Warn("serve: policy source unavailable", zap.Error(err))
		} else {
			col = collector.NewCollector(fetcher)
		}

		rec := openRecorder(cfg.Database.SQLitePath)
		defer rec.Close() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(cfg.Server, analysis.NewEngine(cfg.Analysis), col, rec, cfg.Batch.MaxConcurrent)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
