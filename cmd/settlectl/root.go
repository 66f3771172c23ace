package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// newRootCommand creates the settlectl command tree
func newRootCommand() *cobra.Command {
	var asJSON bool

	rootCmd := &cobra.Command{
		Use:     "settlectl",
		Short:   "Operate the settlement ledger from the command line",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")

	out := func(cmd *cobra.Command) printer {
		return printer{w: cmd.OutOrStdout(), json: asJSON}
	}

	rootCmd.AddCommand(newPlanCommand(out))
	rootCmd.AddCommand(newSeedCommand(out, bootstrap))
	rootCmd.AddCommand(newReconcileCommand(out, bootstrap))

	return rootCmd
}

type printer struct {
	w    io.Writer
	json bool
}

// emit writes v as indented JSON when --json is set, otherwise calls text
func (p printer) emit(v any, text func(io.Writer) error) error {
	if p.json {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(p.w)
}
