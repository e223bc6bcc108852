package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/researchgate/crossref-snapshot-mount/internal/control"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full load pass over the snapshot inventory",
	Run:   runLoad,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runLoad(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer shutdown(app)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start app", "error", err)
		os.Exit(1)
	}

	report, err := app.Runner.Run(ctx)
	if err != nil {
		slog.Error("Run aborted", "error", err)
		os.Exit(1)
	}

	slog.Info("Pass finished",
		"listed", report.Listed,
		"submitted", report.Submitted,
		"succeeded", report.Succeeded,
		"deferred", report.Deferred,
	)
}

func shutdown(app *control.App) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}
