package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"PolicyScan/internal/analysis"
	"PolicyScan/internal/collector"
	"PolicyScan/internal/notifier"
	"PolicyScan/internal/scheduler"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run scheduled scans and the Telegram command bot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("bot"); err != nil {
			return err
		}

		fetcher, err := collector.NewFetcher(cfg)
		if err != nil {
			return err
		}
		zap.L().Info("bot: policy source", zap.String("source", fetcher.Name()))
		col := collector.NewCollector(fetcher)

		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

		rec := openRecorder(cfg.Database.SQLitePath)
		defer rec.Close() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sched := scheduler.NewScheduler(ctx, col, analysis.NewEngine(cfg.Analysis), tn, rec)
		sched.Owner = cfg.Book.Owner
		if err := sched.RegisterAll(cfg.Schedule.ScanCron, cfg.Schedule.ExpiryCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		go tn.StartPolling(ctx, sched.HandleCommand)
		zap.L().Info("bot: telegram polling started")

		runNow, _ := cmd.Flags().GetBool("run-now")
		if runNow || cfg.Schedule.RunOnStart {
			zap.L().Info("bot: running scan on start")
			go sched.RunScanNow()
		}

		zap.L().Info("bot: running, press Ctrl+C to stop")
		<-ctx.Done()
		zap.L().Info("bot: shutdown signal received, stopping")
		return nil
	},
}

func init() {
	botCmd.Flags().Bool("run-now", false, "run a scan immediately after start")
	rootCmd.AddCommand(botCmd)
}
