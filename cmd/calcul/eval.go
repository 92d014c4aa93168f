package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"regles-hq/calcul/pkg/cli"
	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/engine"
	"regles-hq/calcul/pkg/telemetry/metrics"
)

var evalFlags struct {
	rules     rulesFlags
	format    string
	trace     bool
	traversed bool
	metrics   bool
	progress  bool
	watch     bool
	addr      string
	journal   bool
}

var evalCmd = &cobra.Command{
	Use:   "eval [rule...]",
	Short: "Evaluate rules",
	Long: `Evaluate rules and print their values. Without rule names, every rule is
evaluated.

Examples:
  # Evaluate one rule
  calcul eval --rules paie/ "salaire net"

  # Override rules for this evaluation
  calcul eval --rules paie/ --set "salaire brut = 3000 €/mois" "salaire net"

  # Situation file, trace of computations and JSON output
  calcul eval --rules paie/ --situation cadre.yaml --trace --format json

  # Keep evaluating as the rules change
  calcul eval --rules paie/ --watch "salaire net"

  # Record the results in the journal
  calcul eval --rules paie/ --journal "salaire net"`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalFlags.rules.register(evalCmd)
	evalCmd.Flags().StringVarP(&evalFlags.format, "format", "f", "text", "output format: text, json, table")
	evalCmd.Flags().BoolVar(&evalFlags.trace, "trace", false, "print every computed rule to stderr")
	evalCmd.Flags().BoolVar(&evalFlags.traversed, "traversed", false, "list the rules each result depends on")
	evalCmd.Flags().BoolVar(&evalFlags.metrics, "metrics", false, "print metrics to stderr after evaluating")
	evalCmd.Flags().BoolVar(&evalFlags.progress, "progress", false, "show a progress bar on stderr")
	evalCmd.Flags().BoolVarP(&evalFlags.watch, "watch", "w", false, "re-evaluate when rules files change (default: rules.watch from config)")
	evalCmd.Flags().StringVar(&evalFlags.addr, "metrics-addr", "", "serve metrics and health on this address while watching")
	evalCmd.Flags().BoolVar(&evalFlags.journal, "journal", false, "record results in the evaluation journal (default: journal.enabled from config)")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()

	format, err := cli.ParseOutputFormat(evalFlags.format)
	if err != nil {
		return err
	}

	engineCfg := engine.ConfigFrom(cfg.Engine)
	if evalFlags.trace {
		engineCfg.WithTrace(true)
	}
	collector := newCollector(cfg)

	manager, err := loadRules(cmd.Context(), cfg, &evalFlags.rules, engineCfg, collector)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}
	defer manager.Close()

	useJournal := evalFlags.journal
	if !cmd.Flags().Changed("journal") {
		useJournal = cfg.Journal.Enabled
	}
	var jw *journalWriter
	if useJournal {
		if jw, err = newJournalWriter(cfg, collector); err != nil {
			return cli.NewCommandError("eval", err)
		}
		defer func() {
			if err := jw.Close(); err != nil {
				logger.Warn("Failed to close journal", "error", err)
			}
		}()
	}

	watch := evalFlags.watch
	if !cmd.Flags().Changed("watch") {
		watch = cfg.Rules.Watch
	}
	if watch {
		return watchRules(cmd, cfg, manager, collector, jw, args, format)
	}

	var progress cli.ProgressReporter
	if evalFlags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr()).WithLabel("Evaluating", "rules")
	}

	results, err := evaluateRules(manager, args, evalFlags.traversed, progress, jw)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	return printDiagnostics(cmd.ErrOrStderr(), manager, collector)
}

// printDiagnostics prints the trace and metrics requested by flags.
func printDiagnostics(w io.Writer, manager *engine.Manager, collector *metrics.Collector) error {
	if evalFlags.trace {
		if trace := manager.Engine().Trace(); trace != nil {
			fmt.Fprintln(w, trace.String())
		}
	}
	if evalFlags.metrics && collector != nil {
		if err := collector.Dump(w); err != nil {
			return err
		}
	}
	return nil
}

// watchContext returns the context of a watch loop, cancelled on SIGINT or
// SIGTERM.
func watchContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return cli.SetupSignalHandler(cmd.Context())
}
