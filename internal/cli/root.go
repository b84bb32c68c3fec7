// Package cli implements the nlq command, a local front end to the
// translator for trying sentences and generating examples without a broker.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chatdb-workers/internal/common/config"
	"chatdb-workers/internal/models"
	"chatdb-workers/internal/translator"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the nlq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nlq",
		Short: "Translate natural-language questions into database queries",
		Long: `nlq translates constrained natural-language questions into SQL,
aggregation pipelines or search requests, using the same catalog and
vocabulary as the translate-query worker.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file supplying the vocabulary (default: built-in retail dataset)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "json", "output format (json|text)")

	cmd.AddCommand(NewTranslateCommand(opts))
	cmd.AddCommand(NewSamplesCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newTranslator builds a translator from the config file, or from the
// built-in vocabulary when none is given. backend may name a SQL dialect,
// which then overrides the configured one.
func newTranslator(opts *RootOptions, backend string) (*translator.Translator, error) {
	vocab := translator.DefaultVocabulary()
	trCfg := translator.Config{}

	if opts.ConfigPath != "" {
		cfg, err := config.LoadFromFile(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		if vocab, err = cfg.Vocabulary.Build(); err != nil {
			return nil, err
		}
		trCfg = cfg.Translator.Options()
	}

	switch d := models.SQLDialect(backend); d {
	case models.DialectPostgres, models.DialectMySQL, models.DialectSQLite:
		trCfg.Dialect = d
	}
	return translator.New(nil, vocab, trCfg)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
