package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"regles-hq/calcul/pkg/cli"
	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/journal"
	"regles-hq/calcul/pkg/journal/export"
	"regles-hq/calcul/pkg/journal/retention"
	"regles-hq/calcul/pkg/lang/ast"
)

var historyFlags struct {
	format string
	status string
	since  time.Duration
	limit  int
	export string
	output string
}

var historyCmd = &cobra.Command{
	Use:   "history [rule]",
	Short: "Show recorded evaluations",
	Long: `Show the evaluations recorded in the journal, most recent first.

Examples:
  # Last evaluations of a rule
  calcul history "salaire net"

  # Failures of the last day as a table
  calcul history --status error --since 24h --format table

  # Export the journal as CSV
  calcul history --export csv --output journal.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var pruneFlags struct {
	maxAge     time.Duration
	maxEntries int64
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete journal entries beyond the retention limits",
	Long: `Delete the journal entries older than the maximum age, then the oldest
entries beyond the maximum count. Limits default to journal.retention from
the configuration.`,
	Args: cobra.NoArgs,
	RunE: runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyCmd.Flags().StringVarP(&historyFlags.format, "format", "f", "text", "output format: text, json, table")
	historyCmd.Flags().StringVar(&historyFlags.status, "status", "", "only show entries with this status: success, error")
	historyCmd.Flags().DurationVar(&historyFlags.since, "since", 0, "only show entries recorded within this duration")
	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "maximum number of entries")
	historyCmd.Flags().StringVar(&historyFlags.export, "export", "", "export entries as json or csv instead of listing them")
	historyCmd.Flags().StringVarP(&historyFlags.output, "output", "o", "", "write the export to this file instead of stdout")

	historyPruneCmd.Flags().DurationVar(&pruneFlags.maxAge, "max-age", 0, "delete entries older than this duration")
	historyPruneCmd.Flags().Int64Var(&pruneFlags.maxEntries, "max-entries", 0, "keep at most this many entries")
}

type historyEntries struct {
	Entries []*journal.Entry `json:"entries"`
	Total   int64            `json:"total"`
}

func (h historyEntries) Text() string {
	var sb strings.Builder
	for _, e := range h.Entries {
		at := e.RecordedAt.Local().Format(time.DateTime)
		if e.Status == journal.StatusError {
			fmt.Fprintf(&sb, "%s  %s: [%s] %s\n", at, e.Rule, e.ErrorType, e.Error)
			continue
		}
		fmt.Fprintf(&sb, "%s  %s = %s\n", at, e.Rule, e.Display)
	}
	fmt.Fprintf(&sb, "%s of %s entries\n", cli.HumanCount(len(h.Entries)), cli.HumanCount(int(h.Total)))
	return sb.String()
}

func (h historyEntries) Header() []string {
	return []string{"Recorded", "Rule", "Value", "Status", "Duration", "Situation"}
}

func (h historyEntries) Rows() [][]any {
	rows := make([][]any, 0, len(h.Entries))
	for _, e := range h.Entries {
		value := e.Display
		if e.Status == journal.StatusError {
			value = e.Error
		}
		rows = append(rows, []any{
			e.RecordedAt.Local().Format(time.DateTime),
			e.Rule,
			value,
			e.Status,
			cli.HumanDuration(e.Duration),
			e.SituationID,
		})
	}
	return rows
}

func historyQuery(args []string) (*journal.Query, error) {
	query := &journal.Query{
		Status: historyFlags.status,
		Limit:  historyFlags.limit,
	}
	if len(args) == 1 {
		query.Rule = ast.CanonicalName(args[0])
	}
	if historyFlags.since > 0 {
		since := time.Now().Add(-historyFlags.since)
		query.Since = &since
	}
	if err := query.Validate(); err != nil {
		return nil, cli.NewConfigError("history", err.Error())
	}
	return query, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()

	query, err := historyQuery(args)
	if err != nil {
		return err
	}

	var exporter journal.Exporter
	switch historyFlags.export {
	case "":
	case "json":
		exporter = export.NewJSONExporter(true)
	case "csv":
		exporter = export.NewCSVExporter(true)
	default:
		return cli.NewConfigError("export", fmt.Sprintf("unknown export format %q (expected json or csv)", historyFlags.export))
	}

	format, err := cli.ParseOutputFormat(historyFlags.format)
	if err != nil {
		return err
	}

	store, err := openJournal(cfg)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	entries, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	if exporter != nil {
		return exportEntries(cmd, exporter, entries)
	}

	total, err := store.Count(ctx, query)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), historyEntries{Entries: entries, Total: total})
}

func exportEntries(cmd *cobra.Command, exporter journal.Exporter, entries []*journal.Entry) error {
	var w io.Writer = cmd.OutOrStdout()
	if historyFlags.output != "" {
		f, err := os.Create(historyFlags.output)
		if err != nil {
			return cli.NewCommandError("history", err)
		}
		defer f.Close()
		w = f
	}

	if err := exporter.Export(cmd.Context(), entries, w); err != nil {
		return cli.NewCommandError("history", err)
	}
	if historyFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s entries to %s\n", cli.HumanCount(len(entries)), historyFlags.output)
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, _ []string) error {
	cfg := config.MustGetConfig()

	pruneCfg := retention.ConfigFrom(cfg.Journal.Retention)
	if cmd.Flags().Changed("max-age") {
		pruneCfg.MaxAge = pruneFlags.maxAge
	}
	if cmd.Flags().Changed("max-entries") {
		pruneCfg.MaxEntries = pruneFlags.maxEntries
	}
	if pruneCfg.MaxAge <= 0 && pruneCfg.MaxEntries <= 0 {
		return cli.NewConfigError("journal.retention", "no retention limit set (use --max-age or --max-entries)")
	}

	store, err := openJournal(cfg)
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	defer store.Close()

	deleted, err := retention.NewPruner(store, pruneCfg, logger.Slog()).Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s entries\n", cli.HumanCount(int(deleted)))
	return nil
}
