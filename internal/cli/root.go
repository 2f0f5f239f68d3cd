package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apresai/narrator/internal/observability"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:               "narrator",
	Short:             "Convert books, articles and news into narrated MP3 tracks",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("narrator %s\n", Version)
	},
}

var (
	flagConfig    string
	flagVerbose   bool
	flagLogLevel  string
	flagLogFormat string
	flagEnvFile   string
)

var (
	// appFs is the filesystem every command reads and writes through.
	appFs  afero.Fs = afero.NewOsFs()
	logger          = slog.Default()
	tracer *sdktrace.TracerProvider
)

func init() {
	rootCmd.AddCommand(versionCmd)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default $NARRATOR_CONFIG or ~/.narrator.yaml)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable detailed logging instead of the progress bar")
	pf.StringVar(&flagLogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&flagEnvFile, "env-file", ".env", "Load environment variables from this file if it exists")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running
// command; chunk files written so far are kept for the next run.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)

	if tracer != nil {
		sctx, scancel := observability.ShutdownContext(ctx, 5*time.Second)
		if serr := tracer.Shutdown(sctx); serr != nil {
			logger.WarnContext(sctx, "trace export failed", "error", serr)
		}
		scancel()
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Interrupted. Completed chunks are kept; run the same command again to resume.")
	}
	return err
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(flagEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", flagEnvFile, err)
	}

	level := flagLogLevel
	if flagVerbose {
		level = "debug"
	}
	l, err := observability.NewLogger(observability.LogConfig{Level: level, Format: flagLogFormat})
	if err != nil {
		return err
	}
	logger = l
	slog.SetDefault(l)

	if observability.TracingEnabled() && tracer == nil {
		tp, err := observability.InitTracer(cmd.Context(), "narrator", Version)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			tracer = tp
		}
	}
	return nil
}

// applyLogging lets the config file set logging unless flags did.
func applyLogging(cmd *cobra.Command, level, format string) {
	if flagVerbose {
		return
	}
	changed := cmd.Flags().Changed("log-level") || cmd.Flags().Changed("log-format")
	if changed || (level == "" && format == "") {
		return
	}
	if level == "" {
		level = flagLogLevel
	}
	if format == "" {
		format = flagLogFormat
	}
	l, err := observability.NewLogger(observability.LogConfig{Level: level, Format: format})
	if err != nil {
		logger.Warn("ignoring logging config", "error", err)
		return
	}
	logger = l
	slog.SetDefault(l)
}
