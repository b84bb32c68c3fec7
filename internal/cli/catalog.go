package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type catalogEntry struct {
	Intent   string `json:"intent"`
	Rule     string `json:"rule"`
	Template string `json:"template"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the recognized question patterns in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, cmd.OutOrStdout())
		},
	}
}

func runCatalog(rootOpts *RootOptions, w io.Writer) error {
	tr, err := newTranslator(rootOpts, "")
	if err != nil {
		return err
	}

	patterns := tr.Catalog().Patterns()
	entries := make([]catalogEntry, len(patterns))
	for i, p := range patterns {
		entries[i] = catalogEntry{Intent: string(p.Intent), Rule: p.Rule.String(), Template: p.Template}
	}

	if rootOpts.Format == "json" {
		return writeJSON(w, entries)
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-26s %s\n", e.Intent, e.Template)
	}
	return nil
}
