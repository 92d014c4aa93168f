package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"regles-hq/calcul/pkg/cli"
	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/telemetry/logging"
	"regles-hq/calcul/pkg/telemetry/tracing"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	verbose   bool

	// logger is set up by the root command before any subcommand runs
	logger *logging.Logger

	// tracer is nil until setup runs
	tracer *tracing.Tracer
)

var rootCmd = &cobra.Command{
	Use:   "calcul",
	Short: "Calcul - compile and evaluate rules",
	Long: `Calcul compiles rules written in a publicodes-like language and evaluates
them on demand.

Rules are named expressions with units:
  salaire brut: 3000 €/mois
  salaire net: salaire brut * 78%

A situation overrides rules with expressions at evaluation time, without
recompiling the rules.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	shutdownTracer()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

// shutdownTracer flushes the spans of the command.
func shutdownTracer() {
	if tracer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracer.Shutdown(ctx); err != nil {
		logger.Warn("Failed to flush traces", "error", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json, text, console")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}

// setup loads the configuration and creates the logger and the tracer.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("config", err.Error())
	}
	cfg := config.MustGetConfig()

	logCfg := cfg.Telemetry.Logging
	if cfgFile == "" && os.Getenv("CALCUL_TELEMETRY_LOGGING_LEVEL") == "" {
		// Without explicit configuration, stderr only carries problems
		logCfg.Level = "warn"
	}
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	if verbose {
		logCfg.Level = "debug"
	}
	if logFormat != "" {
		logCfg.Format = logFormat
	}

	l, err := logging.New(logging.FromConfig(logCfg, cmd.ErrOrStderr()))
	if err != nil {
		return cli.NewConfigError("logging", err.Error())
	}
	logger = l.With("command", cmd.Name())
	slog.SetDefault(logger.Slog())

	t, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	tracer = t
	return nil
}
