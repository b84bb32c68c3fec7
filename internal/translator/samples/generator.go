// Package samples produces example sentences with their translated queries.
package samples

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"chatdb-workers/internal/models"
	"chatdb-workers/internal/translator"
)

var ErrEmptyVocabulary = errors.New("EMPTY_VOCABULARY")

var numericOperators = []string{">", "<", "="}

// Sample is one generated sentence and the query it translates to.
type Sample struct {
	Question string               `json:"question"`
	Intent   models.Intent        `json:"intent"`
	Query    *models.BackendQuery `json:"query"`
}

type Generator struct {
	tr  *translator.Translator
	rnd *rand.Rand
}

type Option func(*Generator)

// WithSeed makes generation deterministic.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rnd = rand.New(rand.NewPCG(seed, seed))
	}
}

func NewGenerator(tr *translator.Translator, opts ...Option) *Generator {
	g := &Generator{
		tr:  tr,
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders n samples. Each sentence is produced from a catalog
// template and then translated, so the query always agrees with the builders.
// A Generator is not safe for concurrent use.
func (g *Generator) Generate(n int, backend models.Backend, target string) ([]Sample, error) {
	patterns := g.tr.Catalog().Patterns()
	out := make([]Sample, 0, n)
	for len(out) < n {
		p := patterns[g.rnd.IntN(len(patterns))]
		question, err := g.render(p)
		if err != nil {
			return nil, err
		}
		tr, err := g.tr.Translate(question, backend, target)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", question, err)
		}
		out = append(out, Sample{Question: question, Intent: tr.Intent, Query: tr.Query})
	}
	return out, nil
}

// ForIntent renders a single sentence for intent.
func (g *Generator) ForIntent(intent models.Intent) (string, error) {
	p, ok := g.tr.Catalog().Pattern(intent)
	if !ok {
		return "", fmt.Errorf("no pattern for intent %q", intent)
	}
	return g.render(p)
}

func (g *Generator) render(p translator.Pattern) (string, error) {
	vocab := g.tr.Vocabulary()

	metrics := vocab.TotalMetrics()
	if p.Intent.IsAverage() {
		metrics = vocab.AverageMetrics()
	}
	metric, err := g.pick(metrics, "metrics")
	if err != nil {
		return "", err
	}

	values := map[string]string{"{metric}": metric}

	if strings.Contains(p.Template, "{group}") {
		group, err := g.pick(vocab.Groups(), "groups")
		if err != nil {
			return "", err
		}
		values["{group}"] = group
	}
	if strings.Contains(p.Template, "{limit}") {
		values["{limit}"] = strconv.Itoa(g.rnd.IntN(10) + 1)
	}
	if strings.Contains(p.Template, "{column}") {
		column, op, value, err := g.filter(vocab, strings.Contains(p.Template, "{op}"))
		if err != nil {
			return "", err
		}
		values["{column}"], values["{op}"], values["{value}"] = column, op, value
	}

	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(p.Template), nil
}

// filter picks a column with a value to compare against. String columns are
// only used when sample values exist for them.
func (g *Generator) filter(vocab *translator.Vocabulary, withOperator bool) (column, op, value string, err error) {
	var candidates []string
	for _, c := range vocab.StringFilters() {
		if len(vocab.SampleValues(c)) > 0 {
			candidates = append(candidates, c)
		}
	}
	candidates = append(candidates, vocab.NumericFilters()...)

	column, err = g.pick(candidates, "filters")
	if err != nil {
		return "", "", "", err
	}

	kind, _ := vocab.Classify(column)
	if kind == translator.FieldString {
		value, _ = g.pick(vocab.SampleValues(column), "values")
		return column, "is", value, nil
	}

	op = "="
	if withOperator {
		op = numericOperators[g.rnd.IntN(len(numericOperators))]
	}
	return column, op, strconv.Itoa(g.rnd.IntN(100) + 1), nil
}

func (g *Generator) pick(from []string, what string) (string, error) {
	if len(from) == 0 {
		return "", fmt.Errorf("%w: no %s configured", ErrEmptyVocabulary, what)
	}
	return from[g.rnd.IntN(len(from))], nil
}
