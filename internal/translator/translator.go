// Package translator turns constrained natural-language sentences into
// backend queries.
//
// A sentence is normalized, matched against an ordered pattern catalog,
// bound into typed parameters against a field vocabulary and rendered by one
// of the backend builders. Every stage is a pure function of its input and
// the immutable catalog and vocabulary, so a Translator may be shared freely.
package translator

import (
	"fmt"

	"chatdb-workers/internal/models"
	"chatdb-workers/internal/translator/pipeline"
	"chatdb-workers/internal/translator/search"
	"chatdb-workers/internal/translator/sqlgen"
)

// Config selects rendering options. Zero values pick the defaults.
type Config struct {
	Dialect    models.SQLDialect
	MaxBuckets int
}

type Translator struct {
	catalog  *Catalog
	vocab    *Vocabulary
	sql      *sqlgen.Builder
	pipeline *pipeline.Builder
	search   *search.Builder
}

// Translation is the full result of translating one sentence.
type Translation struct {
	Question   string                 `json:"question"`
	Normalized string                 `json:"normalized"`
	Intent     models.Intent          `json:"intent"`
	Fragments  Fragments              `json:"fragments"`
	Parameters models.BoundParameters `json:"parameters"`
	Query      *models.BackendQuery   `json:"query"`
}

// New builds a Translator. A nil catalog selects DefaultCatalog.
func New(catalog *Catalog, vocab *Vocabulary, cfg Config) (*Translator, error) {
	if vocab == nil {
		return nil, fmt.Errorf("%w: vocabulary is required", ErrInvalidVocabulary)
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if cfg.Dialect == "" {
		cfg.Dialect = models.DialectPostgres
	}

	sql, err := sqlgen.New(cfg.Dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedBackend, err)
	}

	return &Translator{
		catalog:  catalog,
		vocab:    vocab,
		sql:      sql,
		pipeline: pipeline.New(),
		search:   search.New(search.Config{MaxBuckets: cfg.MaxBuckets}),
	}, nil
}

func (t *Translator) Catalog() *Catalog       { return t.catalog }
func (t *Translator) Vocabulary() *Vocabulary { return t.vocab }

// Parse normalizes text and returns the first matching intent.
func (t *Translator) Parse(text string) (Match, error) {
	return t.catalog.Match(Normalize(text))
}

// Bind types the fragments captured for intent.
func (t *Translator) Bind(intent models.Intent, fragments Fragments) (models.BoundParameters, error) {
	return Bind(t.vocab, intent, fragments)
}

// Build validates params and renders them for backend against target, the
// table, collection or index name.
func (t *Translator) Build(intent models.Intent, params models.BoundParameters, backend models.Backend, target string) (*models.BackendQuery, error) {
	if target == "" {
		return nil, ErrMissingTarget
	}
	if err := checkParameters(t.vocab, intent, params); err != nil {
		return nil, err
	}

	q := &models.BackendQuery{Backend: backend, Target: target}
	switch backend {
	case models.BackendSQL:
		stmt, err := t.sql.Build(intent, params, target)
		if err != nil {
			return nil, err
		}
		q.SQL = stmt
	case models.BackendPipeline:
		stages, err := t.pipeline.Build(intent, params)
		if err != nil {
			return nil, err
		}
		q.Pipeline = stages
	case models.BackendSearch:
		req, err := t.search.Build(intent, params, target)
		if err != nil {
			return nil, err
		}
		q.Search = req
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
	return q, nil
}

// Translate runs Parse, Bind and Build. It returns either a complete
// translation or an error, never a partial query.
func (t *Translator) Translate(text string, backend models.Backend, target string) (*Translation, error) {
	normalized := Normalize(text)
	m, err := t.catalog.Match(normalized)
	if err != nil {
		return nil, err
	}
	params, err := t.Bind(m.Intent, m.Fragments)
	if err != nil {
		return nil, err
	}
	q, err := t.Build(m.Intent, params, backend, target)
	if err != nil {
		return nil, err
	}
	return &Translation{
		Question:   text,
		Normalized: normalized,
		Intent:     m.Intent,
		Fragments:  m.Fragments,
		Parameters: params,
		Query:      q,
	}, nil
}
