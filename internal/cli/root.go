package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "snapshot-loader",
	Short: "Snapshot load-and-retry service",
	Long: `snapshot-loader drives a normalized annual snapshot dump from the blob
store into the target table under its rate limits, keeping a durable ledger
of failed uploads so interrupted or throttled work can resume.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig reads the config file and initializes logging.
func loadConfig() (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		initLogger(slog.LevelInfo)
		return nil, err
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	initLogger(slogLevel)

	return cfg, nil
}

func initLogger(level slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		}),
	))
}
