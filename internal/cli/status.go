package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/researchgate/crossref-snapshot-mount/internal/control"
	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show outstanding failures partitioned by cause",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer shutdown(app)

	snapshot, err := app.Ledger.Snapshot(ctx)
	if err != nil {
		slog.Error("Failed to read ledger", "error", err)
		os.Exit(1)
	}

	retryable, dataErrors := domain.PartitionByCause(snapshot)
	fmt.Printf("Outstanding failures: %d (%d retryable, %d need manual repair)\n\n",
		len(snapshot), len(retryable), len(dataErrors))

	if len(snapshot) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "URI\tCAUSE\tRETRIES\tERROR")
	for _, e := range snapshot {
		msg := e.Message
		if len(msg) > 80 {
			msg = msg[:80] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.URI, e.Cause, e.RetryCount, msg)
	}
	_ = w.Flush()
}
