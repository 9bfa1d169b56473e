package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/spf13/cobra"

	"github.com/akhenakh/skriptls/internal/grammar"
)

var highlightCmd = &cobra.Command{
	Use:   "highlight FILE",
	Short: "Print a script with syntax highlighting",
	Args:  cobra.ExactArgs(1),
	RunE:  runHighlight,
}

func init() {
	highlightCmd.Flags().StringP("formatter", "f", "terminal256", "chroma formatter (terminal256|terminal16m|html|json|noop)")
	highlightCmd.Flags().StringP("style", "s", "monokai", "chroma style")
}

func runHighlight(cmd *cobra.Command, args []string) error {
	text, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	formatterName, _ := cmd.Flags().GetString("formatter")
	styleName, _ := cmd.Flags().GetString("style")

	formatter, ok := formatters.Registry[formatterName]
	if !ok {
		return fmt.Errorf("unknown formatter %q", formatterName)
	}
	tokens, err := grammar.Tokenise(string(text))
	if err != nil {
		return err
	}
	return formatter.Format(cmd.OutOrStdout(), styles.Get(styleName), chroma.Literator(tokens...))
}
