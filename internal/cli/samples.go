package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chatdb-workers/internal/models"
	"chatdb-workers/internal/translator/samples"
)

type samplesOptions struct {
	count   int
	backend string
	target  string
	seed    uint64
}

// NewSamplesCommand creates the samples command.
func NewSamplesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &samplesOptions{}

	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Generate example questions with their translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeded := cmd.Flags().Changed("seed")
			return runSamples(rootOpts, opts, seeded, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "n", 5, "number of samples")
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "sql", "sql, postgres, mysql, sqlite, mongodb or elasticsearch")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "sales", "table, collection or index to query")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for reproducible output")

	return cmd
}

func runSamples(rootOpts *RootOptions, opts *samplesOptions, seeded bool, w io.Writer) error {
	if opts.count < 1 {
		return fmt.Errorf("count must be positive")
	}
	backend, err := models.ParseBackend(opts.backend)
	if err != nil {
		return err
	}
	tr, err := newTranslator(rootOpts, opts.backend)
	if err != nil {
		return err
	}

	var genOpts []samples.Option
	if seeded {
		genOpts = append(genOpts, samples.WithSeed(opts.seed))
	}
	out, err := samples.NewGenerator(tr, genOpts...).Generate(opts.count, backend, opts.target)
	if err != nil {
		return err
	}

	if rootOpts.Format == "json" {
		return writeJSON(w, out)
	}
	for i, s := range out {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  [%s]\n", s.Question, s.Intent)
		if err := writeQuery(w, s.Query); err != nil {
			return err
		}
	}
	return nil
}
