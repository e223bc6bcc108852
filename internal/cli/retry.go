package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/researchgate/crossref-snapshot-mount/internal/control"
)

var retryBatchSize int

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-submit ledgered failures with a retryable cause",
	Long: `retry reads the failure ledger, re-submits entries whose cause is
retryable (rate limited or transient), clears entries that now succeed, and
rewrites the ones that fail again. Data errors are reported but left for
manual repair. Invoke repeatedly until only data errors remain.`,
	Run: runRetry,
}

func init() {
	retryCmd.Flags().IntVar(&retryBatchSize, "batch-size", 0, "override the retry batch size")
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if retryBatchSize > 0 {
		cfg.Load.RetryBatchSize = retryBatchSize
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer shutdown(app)

	report, err := app.Retryer.Run(ctx)
	if err != nil {
		slog.Error("Retry pass aborted", "error", err)
		os.Exit(1)
	}

	slog.Info("Retry pass finished",
		"retryable", report.Retryable,
		"cleared", report.Run.Succeeded,
		"still_failing", report.Run.Submitted-report.Run.Succeeded,
		"data_errors", report.DataErrors,
	)
}
