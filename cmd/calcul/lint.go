package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"regles-hq/calcul/pkg/cli"
	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/lang"
	langErrors "regles-hq/calcul/pkg/lang/errors"
)

var lintFlags struct {
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint [path...]",
	Short: "Check rules files for errors",
	Long: `Parse and link rules files without evaluating them. Every problem found
is reported with its location. The exit code is non-zero when a problem is
found.

Examples:
  calcul lint paie/
  calcul lint --format json paie/ commun.rules`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
	lintCmd.Flags().StringVarP(&lintFlags.format, "format", "f", "text", "output format: text, json")
}

// lintProblem is one problem found in the rules.
type lintProblem struct {
	Type       string   `json:"type"`
	Message    string   `json:"message"`
	File       string   `json:"file,omitempty"`
	Line       int      `json:"line,omitempty"`
	Column     int      `json:"column,omitempty"`
	Rule       string   `json:"rule,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Cycle      []string `json:"cycle,omitempty"`
}

type lintResult struct {
	Files    []string      `json:"files"`
	Bytes    int64         `json:"bytes"`
	Problems []lintProblem `json:"problems"`
}

func (r *lintResult) Text() string {
	var sb strings.Builder
	for _, p := range r.Problems {
		if p.File != "" {
			fmt.Fprintf(&sb, "%s:%d:%d: ", p.File, p.Line, p.Column)
		}
		fmt.Fprintf(&sb, "[%s] %s\n", p.Type, p.Message)
		if p.Rule != "" {
			fmt.Fprintf(&sb, "  in rule %q\n", p.Rule)
		}
		if len(p.Cycle) > 0 {
			fmt.Fprintf(&sb, "  cycle: %s\n", strings.Join(p.Cycle, " -> "))
		}
		if p.Suggestion != "" {
			fmt.Fprintf(&sb, "  %s\n", p.Suggestion)
		}
	}

	status := "ok"
	if n := len(r.Problems); n > 0 {
		status = fmt.Sprintf("%s problem(s)", cli.HumanCount(n))
	}
	fmt.Fprintf(&sb, "%s file(s), %s: %s\n", cli.HumanCount(len(r.Files)), cli.HumanBytes(r.Bytes), status)
	return sb.String()
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()

	format, err := cli.ParseOutputFormat(lintFlags.format)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.Rules.Paths
	}
	if len(paths) == 0 {
		return cli.NewConfigError("rules", "no rules paths: pass paths or set rules.paths")
	}

	src, err := newFileSource(cfg, paths)
	if err != nil {
		return cli.NewConfigError("rules", err.Error())
	}
	files, err := src.Files()
	if err != nil {
		return cli.NewCommandError("lint", err)
	}
	if len(files) == 0 {
		return cli.NewCommandError("lint", fmt.Errorf("no rules files found in %s", src))
	}

	result := &lintResult{Files: files, Problems: []lintProblem{}}
	for _, file := range files {
		if info, err := os.Stat(file); err == nil {
			result.Bytes += info.Size()
		}
	}

	errs := lang.LintFiles(files)
	for _, e := range errs.Errors {
		result.Problems = append(result.Problems, problemFrom(e))
	}
	logger.Debug("Linted rules", "files", len(files), "problems", len(result.Problems))

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if errs.HasErrors() {
		return cli.NewCommandError("lint", fmt.Errorf("%d problem(s) found", errs.Count()))
	}
	return nil
}

func problemFrom(e *langErrors.Error) lintProblem {
	p := lintProblem{
		Type:       string(e.Type),
		Message:    e.Message,
		Rule:       e.Rule,
		Suggestion: e.Suggestion,
		Cycle:      e.Cycle,
	}
	if e.Location.IsValid() {
		p.File = e.Location.File
		p.Line = e.Location.Line
		p.Column = e.Location.Column
	}
	return p
}
