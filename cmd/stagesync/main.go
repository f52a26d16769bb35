package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"stagesync/internal/config"
	"stagesync/internal/sync"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Sync flags
	sourceDir string
	destDir   string
	pattern   string
	dryRun    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stagesync",
	Short: "Stage newly arrived data files into a validated directory",
	Long: `stagesync copies data files from an input directory into a validated
working directory, skipping any file that already exists at the destination
and preserving the source file's last-modified timestamp on each copy.

Running it twice is safe: files staged by an earlier run are left untouched,
including their content and timestamps.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy missing files from the input directory to the validated directory",
	Long: `Sync enumerates the files in the source directory that match the configured
pattern (non-recursively) and copies each one that has no same-named entry in
the destination directory, carrying the source's modification time over.

Individual copy failures are reported and do not abort the run; the command
exits non-zero only when the destination directory cannot be created or the
configuration is invalid.`,
	RunE: runSync,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stagesync %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./stagesync.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Sync command flags
	syncCmd.Flags().StringVar(&sourceDir, "source", "", "source directory (overrides config)")
	syncCmd.Flags().StringVar(&destDir, "dest", "", "destination directory (overrides config)")
	syncCmd.Flags().StringVar(&pattern, "pattern", "", "file matching pattern (overrides config)")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be copied without making changes")

	// Add commands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	// Setup logger
	logger := setupLogger()

	// Load configuration
	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Create staging engine
	engine := sync.NewEngine(cfg, logger, dryRun || cfg.Sync.DryRun)

	// Run sync
	logger.Info("starting sync operation")
	summary, err := engine.Run(ctx)
	if err != nil {
		logger.Error("sync failed", "error", err)
		return err
	}

	logger.Info("sync finished",
		"total", summary.Total,
		"copied", summary.Copied,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return nil
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	// A .env file next to the binary can supply STAGESYNC_* overrides;
	// its absence is not an error.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded environment overrides from .env")
	}

	// Determine config file path
	configPath := cfgFile
	if configPath == "" {
		// The tool must run with no arguments at all, so a missing default
		// config file falls back to built-in defaults.
		if _, err := os.Stat("stagesync.yaml"); err != nil {
			logger.Debug("no config file found, using defaults")
			return config.Default()
		}
		configPath = "stagesync.yaml"
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"source", cfg.Paths.SourceDir,
		"dest", cfg.Paths.DestDir,
		"pattern", cfg.Sync.Pattern)

	return cfg, nil
}

// applyFlagOverrides lets command-line flags win over file and env values.
func applyFlagOverrides(cfg *config.Config) {
	if sourceDir != "" {
		cfg.Paths.SourceDir = sourceDir
	}
	if destDir != "" {
		cfg.Paths.DestDir = destDir
	}
	if pattern != "" {
		cfg.Sync.Pattern = pattern
	}
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
