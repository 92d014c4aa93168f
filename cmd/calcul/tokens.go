package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"regles-hq/calcul/pkg/cli"
	"regles-hq/calcul/pkg/lang/token"
)

var tokensFlags struct {
	numbers bool
}

var tokensCmd = &cobra.Command{
	Use:    "tokens <file>",
	Short:  "Print the tokens of a rules file",
	Args:   cobra.ExactArgs(1),
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return cli.NewCommandError("tokens", err)
		}
		tokens, err := token.TokenizeFile(args[0], string(data))
		if err != nil {
			return cli.NewCommandError("tokens", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token.Print(tokens, tokensFlags.numbers))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.Flags().BoolVarP(&tokensFlags.numbers, "numbers", "n", false, "prefix tokens with their index")
}
