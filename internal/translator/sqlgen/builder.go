// Package sqlgen renders bound query parameters as parameterized SQL.
//
// Values never appear in the statement text; they are returned as driver
// arguments. Identifiers are emitted bare when they are plain words and
// quoted for the dialect otherwise.
package sqlgen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"chatdb-workers/internal/models"

	"github.com/lib/pq"
)

var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Builder renders statements for one dialect.
type Builder struct {
	dialect models.SQLDialect
}

// New returns a Builder for dialect.
func New(dialect models.SQLDialect) (*Builder, error) {
	switch dialect {
	case models.DialectPostgres, models.DialectMySQL, models.DialectSQLite:
		return &Builder{dialect: dialect}, nil
	}
	return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
}

// Dialect returns the dialect the builder renders for.
func (b *Builder) Dialect() models.SQLDialect {
	return b.dialect
}

// statement accumulates query text and arguments.
type statement struct {
	dialect models.SQLDialect
	sb      strings.Builder
	args    []interface{}
}

func (s *statement) write(parts ...string) {
	for _, p := range parts {
		s.sb.WriteString(p)
	}
}

// bind appends v to the argument list and returns its placeholder.
func (s *statement) bind(v interface{}) string {
	s.args = append(s.args, v)
	if s.dialect == models.DialectPostgres {
		return "$" + strconv.Itoa(len(s.args))
	}
	return "?"
}

// Build renders intent over table. Parameters are expected to have passed
// the translator's validation.
func (b *Builder) Build(intent models.Intent, p models.BoundParameters, table string) (*models.SQLStatement, error) {
	if !intent.Valid() {
		return nil, fmt.Errorf("unknown intent %q", intent)
	}
	if table == "" {
		return nil, fmt.Errorf("table name is required")
	}

	s := &statement{dialect: b.dialect}
	alias := b.ident(p.Alias(intent))

	s.write("SELECT ")
	if intent.IsGrouped() {
		s.write(b.ident(p.GroupBy), ", ")
	}
	s.write(b.aggregate(intent, p), " AS ", alias)
	s.write(" FROM ", b.ident(table))

	if p.Filter != nil {
		s.write(" WHERE ", b.predicate(s, p.Filter))
	}
	if intent.IsGrouped() {
		s.write(" GROUP BY ", b.ident(p.GroupBy))
	}
	s.write(" ORDER BY ", alias, " DESC")
	if intent == models.IntentTopN {
		s.write(" LIMIT ", s.bind(p.Limit))
	}

	return &models.SQLStatement{
		Query:   s.sb.String(),
		Args:    s.args,
		Dialect: b.dialect,
	}, nil
}

func (b *Builder) aggregate(intent models.Intent, p models.BoundParameters) string {
	if p.CountsRows() {
		return "COUNT(*)"
	}
	if intent.IsAverage() {
		return "AVG(" + b.ident(p.Metric) + ")"
	}
	return "SUM(" + b.ident(p.Metric) + ")"
}

func (b *Builder) predicate(s *statement, f *models.Filter) string {
	col := b.ident(f.Column)
	if f.Value.Kind == models.ValueString {
		return "LOWER(" + col + ") = LOWER(" + s.bind(f.Value.Text) + ")"
	}
	return col + " " + f.Operator.SQL() + " " + s.bind(f.Value.Number)
}

// ident quotes name unless it is a plain identifier.
func (b *Builder) ident(name string) string {
	if plainIdentifier.MatchString(name) {
		return name
	}
	if b.dialect == models.DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return pq.QuoteIdentifier(name)
}
