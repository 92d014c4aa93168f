package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"regles-hq/calcul/pkg/cli"
	"regles-hq/calcul/pkg/config"
	"regles-hq/calcul/pkg/engine"
	"regles-hq/calcul/pkg/lang/ast"
)

var traverseFlags struct {
	rules  rulesFlags
	format string
}

var traverseCmd = &cobra.Command{
	Use:   "traverse <rule>...",
	Short: "List the rules a rule depends on",
	Long: `Evaluate rules and list the rules each one traversed, itself included.
Rules replaced by the situation are not traversed further.

Example:
  calcul traverse --rules paie/ --set "salaire brut = 3000" "salaire net"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTraverse,
}

func init() {
	rootCmd.AddCommand(traverseCmd)
	traverseFlags.rules.register(traverseCmd)
	traverseCmd.Flags().StringVarP(&traverseFlags.format, "format", "f", "text", "output format: text, json")
}

type traversal struct {
	Rule      string   `json:"rule"`
	Traversed []string `json:"traversed"`
}

type traversals []traversal

func (t traversals) Text() string {
	var sb strings.Builder
	for _, tr := range t {
		fmt.Fprintf(&sb, "%s:\n", tr.Rule)
		for _, name := range tr.Traversed {
			fmt.Fprintf(&sb, "  %s\n", name)
		}
	}
	return sb.String()
}

func runTraverse(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()

	format, err := cli.ParseOutputFormat(traverseFlags.format)
	if err != nil {
		return err
	}

	manager, err := loadRules(cmd.Context(), cfg, &traverseFlags.rules, engine.ConfigFrom(cfg.Engine), nil)
	if err != nil {
		return cli.NewCommandError("traverse", err)
	}
	defer manager.Close()

	result := make(traversals, 0, len(args))
	for _, name := range args {
		name = ast.CanonicalName(name)
		traversed, err := manager.TraversedRules(name)
		if err != nil {
			return cli.NewCommandError("traverse", err)
		}
		result = append(result, traversal{Rule: name, Traversed: traversed})
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)
}
