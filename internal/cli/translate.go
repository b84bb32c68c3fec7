package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"chatdb-workers/internal/models"
	"chatdb-workers/internal/translator"
)

type translateOptions struct {
	backend string
	target  string
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate <question...>",
		Short: "Translate one question",
		Example: `  nlq translate "total price by category"
  nlq translate --backend mongodb --target orders "top 3 price by category"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(rootOpts, opts, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "sql", "sql, postgres, mysql, sqlite, mongodb or elasticsearch")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "sales", "table, collection or index to query")

	return cmd
}

func runTranslate(rootOpts *RootOptions, opts *translateOptions, question string, w io.Writer) error {
	backend, err := models.ParseBackend(opts.backend)
	if err != nil {
		return err
	}
	tr, err := newTranslator(rootOpts, opts.backend)
	if err != nil {
		return err
	}

	res, err := tr.Translate(question, backend, opts.target)
	if err != nil {
		return fmt.Errorf("%s: %w", translator.Code(err), err)
	}

	if rootOpts.Format == "json" {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "intent: %s\n", res.Intent)
	return writeQuery(w, res.Query)
}

func writeQuery(w io.Writer, q *models.BackendQuery) error {
	switch {
	case q.SQL != nil:
		fmt.Fprintln(w, q.SQL.Query)
		if len(q.SQL.Args) > 0 {
			fmt.Fprintf(w, "args: %v\n", q.SQL.Args)
		}
		return nil
	case q.Pipeline != nil:
		raw, err := q.Pipeline.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "db.%s.aggregate(%s)\n", q.Target, raw)
		return nil
	case q.Search != nil:
		fmt.Fprintf(w, "GET /%s/_search\n", q.Search.Index)
		return writeJSON(w, q.Search.Body)
	}
	return fmt.Errorf("empty query")
}
