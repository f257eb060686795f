package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/config"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/logger"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/service/updater"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// formulaPath overrides the formula path from the configuration.
	formulaPath string
	// logLevel is the console log level.
	logLevel string
	// logFile is an optional rotating log file.
	logFile string
	// dryRun reports changes without writing the formula.
	dryRun bool
	// commit commits the updated formula to the tap repository.
	commit bool
	// noProgress disables download progress bars.
	noProgress bool

	// rootCmd updates the Homebrew formula for a release.
	rootCmd = &cobra.Command{
		Use:   "formula-updater [version]",
		Short: "Update the Homebrew formula with the checksums of a GitHub release",
		Long: "Fetch the release tagged v<version>, download every asset, compute its SHA-256 " +
			"and rewrite the version and sha256 declarations of the Homebrew formula in place.",
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: setupLogger,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &updater.Options{
				ConfigPath:  configPath,
				FormulaPath: formulaPath,
				DryRun:      dryRun,
				Commit:      commit,
			}

			if len(args) > 0 {
				options.Version = args[0]
			}

			if !noProgress {
				options.Progress = cmd.ErrOrStderr()
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the formula-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(newChecksumCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// setupLogger applies the log level and the optional log file before any command runs.
func setupLogger(cmd *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	logger.SetLevel(level)

	path := logFile
	if path == "" {
		// The file setting is optional; Run reports configuration errors.
		if cfg, err := config.Load(configPath); err == nil {
			path = cfg.LogFile
		}
	}

	if path == "" {
		return nil
	}

	fileLogger, err := logger.NewWithFile(nil, logger.FileOptions{Filename: path})
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	logger.SetLogger(fileLogger)
	cmd.SetContext(logger.ToContext(cmd.Context(), fileLogger))

	return nil
}

// writeLine prints a single line to w, ignoring write errors on the console.
func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "console log level (debug, info, warn, error)")
	flags.StringVar(&logFile, "log-file", "", "also write debug logs to this rotating file")

	rootCmd.Flags().StringVarP(&formulaPath, "formula", "f", "", "path to the Homebrew formula (overrides configuration)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the changes without writing the formula")
	rootCmd.Flags().BoolVar(&commit, "commit", false, "commit the updated formula to the tap repository")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable download progress bars")
}
