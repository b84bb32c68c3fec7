package translator

import (
	"fmt"
	"regexp"
	"testing"

	"chatdb-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestTranslator(t *testing.T) *Translator {
	tr, err := New(nil, DefaultVocabulary(), Config{Dialect: models.DialectPostgres})
	require.NoError(t, err)
	return tr
}

// ==========================
// Normalizer Tests
// ==========================

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lower cases", "Total Price BY Category", "total price by category"},
		{"collapses whitespace", "  total \t price\n by   category ", "total price by category"},
		{"pads operators", "average quantity by location where price>50", "average quantity by location where price > 50"},
		{"keeps spaced operators", "where price < 50", "where price < 50"},
		{"trims punctuation", "top 3 sales by category?!", "top 3 sales by category"},
		{"keeps decimal point", "where price > 5.5", "where price > 5.5"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

// ==========================
// Matcher Tests
// ==========================

func TestParse_Examples(t *testing.T) {
	tr := newTestTranslator(t)

	tests := []struct {
		name      string
		question  string
		intent    models.Intent
		fragments Fragments
	}{
		{"total by group", "total price by category", models.IntentTotalByGroup, Fragments{"price", "category"}},
		{"average filtered", "average quantity by location where price > 50", models.IntentAverageByGroupFiltered,
			Fragments{"quantity", "location", "price", ">", "50"}},
		{"top n", "top 3 sales by payment_method", models.IntentTopN, Fragments{"3", "sales", "payment_method"}},
		{"total for value", "total sales for location north america", models.IntentTotalForValue,
			Fragments{"sales", "location", "north america"}},
		{"average for value", "Average price for category Books", models.IntentAverageForValue,
			Fragments{"price", "category", "books"}},
		{"embedded in sentence", "please show the total price by category", models.IntentTotalByGroup,
			Fragments{"price", "category"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tr.Parse(tt.question)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, m.Intent)
			assert.Equal(t, tt.fragments, m.Fragments)
		})
	}
}

func TestParse_Unrecognized(t *testing.T) {
	tr := newTestTranslator(t)

	for _, q := range []string{"show me stuff", "", "total", "subtotal price by category", "top sales by category"} {
		t.Run(q, func(t *testing.T) {
			_, err := tr.Parse(q)
			assert.ErrorIs(t, err, ErrUnrecognized)
			assert.Equal(t, "UNRECOGNIZED_QUERY", Code(err))
		})
	}
}

func TestParse_FilteredFormWinsForAllFields(t *testing.T) {
	tr := newTestTranslator(t)
	fields := []string{"price", "quantity", "sales", "category", "location", "x", "y", "a"}

	for _, x := range fields {
		for _, y := range fields {
			for _, a := range fields {
				for _, prefix := range []string{"total", "average"} {
					q := fmt.Sprintf("%s %s by %s where %s > 5", prefix, x, y, a)
					m, err := tr.Parse(q)
					require.NoError(t, err, q)
					assert.Len(t, m.Fragments, 5, q)
					if prefix == "total" {
						assert.Equal(t, models.IntentTotalByGroupFiltered, m.Intent, q)
					} else {
						assert.Equal(t, models.IntentAverageByGroupFiltered, m.Intent, q)
					}
				}
			}
		}
	}
}

func TestNewCatalog_OrdersMostSpecificFirst(t *testing.T) {
	// declared in the wrong order on purpose
	reversed := DefaultPatterns()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	catalog, err := NewCatalog(reversed)
	require.NoError(t, err)

	m, err := catalog.Match(Normalize("total price by category where quantity > 5"))
	require.NoError(t, err)
	assert.Equal(t, models.IntentTotalByGroupFiltered, m.Intent)

	m, err = catalog.Match(Normalize("average price by category where location is asia"))
	require.NoError(t, err)
	assert.Equal(t, models.IntentAverageByGroupFiltered, m.Intent)

	patterns := catalog.Patterns()
	for i := 1; i < len(patterns); i++ {
		assert.GreaterOrEqual(t, patterns[i-1].Specificity(), patterns[i].Specificity())
	}
}

func TestNewCatalog_Validation(t *testing.T) {
	good := DefaultPatterns()

	tests := []struct {
		name     string
		patterns []Pattern
	}{
		{"empty", nil},
		{"duplicate intent", append(good[:2:2], good[1])},
		{"unknown intent", []Pattern{{Intent: "median", Rule: regexp.MustCompile(`median (\w+)`)}}},
		{"nil rule", []Pattern{{Intent: models.IntentTopN}}},
		{"wrong capture count", []Pattern{{Intent: models.IntentTopN, Rule: regexp.MustCompile(`top (\d+)`)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.patterns)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestCatalog_Pattern(t *testing.T) {
	c := DefaultCatalog()
	for _, intent := range models.Intents {
		p, ok := c.Pattern(intent)
		require.True(t, ok, intent)
		assert.Equal(t, intent, p.Intent)
	}
	_, ok := c.Pattern("median")
	assert.False(t, ok)
}

// ==========================
// Binder Tests
// ==========================

func TestBind_OperatorMapping(t *testing.T) {
	tr := newTestTranslator(t)
	vocab := tr.Vocabulary()

	ops := map[string]models.Operator{">": models.OpGt, "<": models.OpLt, "=": models.OpEq, "is": models.OpEq}

	for _, column := range vocab.NumericFilters() {
		for tok, want := range ops {
			q := fmt.Sprintf("total sales by category where %s %s 10", column, tok)
			m, err := tr.Parse(q)
			require.NoError(t, err, q)
			params, err := tr.Bind(m.Intent, m.Fragments)
			require.NoError(t, err, q)
			require.NotNil(t, params.Filter)
			assert.Equal(t, want, params.Filter.Operator, q)
			assert.Equal(t, models.NumericValue(10), params.Filter.Value, q)
		}
	}

	for _, column := range vocab.StringFilters() {
		for _, tok := range []string{"=", "is"} {
			q := fmt.Sprintf("total sales by category where %s %s asia", column, tok)
			m, err := tr.Parse(q)
			require.NoError(t, err, q)
			params, err := tr.Bind(m.Intent, m.Fragments)
			require.NoError(t, err, q)
			assert.Equal(t, models.OpEq, params.Filter.Operator, q)
			assert.Equal(t, models.StringValue("asia"), params.Filter.Value, q)
		}
	}
}

func TestBind_Examples(t *testing.T) {
	vocab := DefaultVocabulary()

	tests := []struct {
		name      string
		intent    models.Intent
		fragments Fragments
		want      models.BoundParameters
	}{
		{
			name:      "by group",
			intent:    models.IntentTotalByGroup,
			fragments: Fragments{"price", "category"},
			want:      models.BoundParameters{Metric: "price", GroupBy: "category"},
		},
		{
			name:      "filtered numeric",
			intent:    models.IntentAverageByGroupFiltered,
			fragments: Fragments{"quantity", "location", "price", ">", "50"},
			want: models.BoundParameters{Metric: "quantity", GroupBy: "location", Filter: &models.Filter{
				Column: "price", Operator: models.OpGt, Value: models.NumericValue(50),
			}},
		},
		{
			name:      "for value multi word",
			intent:    models.IntentTotalForValue,
			fragments: Fragments{"sales", "payment_method", "credit card "},
			want: models.BoundParameters{Metric: "sales", Filter: &models.Filter{
				Column: "payment_method", Operator: models.OpEq, Value: models.StringValue("credit card"),
			}},
		},
		{
			name:      "top n",
			intent:    models.IntentTopN,
			fragments: Fragments{"3", "sales", "payment_method"},
			want:      models.BoundParameters{Metric: "sales", GroupBy: "payment_method", Limit: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bind(vocab, tt.intent, tt.fragments)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBind_Errors(t *testing.T) {
	vocab := DefaultVocabulary()

	tests := []struct {
		name      string
		intent    models.Intent
		fragments Fragments
		wantErr   error
	}{
		{"zero limit", models.IntentTopN, Fragments{"0", "sales", "category"}, ErrMalformedLimit},
		{"negative limit", models.IntentTopN, Fragments{"-2", "sales", "category"}, ErrMalformedLimit},
		{"word limit", models.IntentTopN, Fragments{"three", "sales", "category"}, ErrMalformedLimit},
		{"fractional limit", models.IntentTopN, Fragments{"2.5", "sales", "category"}, ErrMalformedLimit},
		{"unknown column", models.IntentTotalByGroupFiltered, Fragments{"sales", "category", "colour", "=", "red"}, ErrUnknownField},
		{"unknown for-value column", models.IntentAverageForValue, Fragments{"price", "store", "x"}, ErrUnknownField},
		{"text for number", models.IntentTotalByGroupFiltered, Fragments{"sales", "category", "price", ">", "cheap"}, ErrTypeMismatch},
		{"nan for number", models.IntentTotalByGroupFiltered, Fragments{"sales", "category", "price", "=", "nan"}, ErrTypeMismatch},
		{"ordering on text", models.IntentTotalByGroupFiltered, Fragments{"sales", "category", "location", ">", "asia"}, ErrTypeMismatch},
		{"bad operator", models.IntentTotalByGroupFiltered, Fragments{"sales", "category", "price", ">=", "1"}, ErrMalformedFragments},
		{"wrong count", models.IntentTotalByGroup, Fragments{"sales"}, ErrMalformedFragments},
		{"empty fragment", models.IntentTotalByGroup, Fragments{"sales", " "}, ErrMalformedFragments},
		{"unknown intent", "median", Fragments{"sales"}, ErrMalformedFragments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(vocab, tt.intent, tt.fragments)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ==========================
// Translate Tests
// ==========================

func TestTranslate_Example1_SQL(t *testing.T) {
	tr := newTestTranslator(t)

	res, err := tr.Translate("total price by category", models.BackendSQL, "sales_data")
	require.NoError(t, err)

	assert.Equal(t, models.IntentTotalByGroup, res.Intent)
	require.NotNil(t, res.Query.SQL)
	assert.Equal(t,
		"SELECT category, SUM(price) AS total_price FROM sales_data GROUP BY category ORDER BY total_price DESC",
		res.Query.SQL.Query)
	assert.Empty(t, res.Query.SQL.Args)
	assert.Nil(t, res.Query.Pipeline)
	assert.Nil(t, res.Query.Search)
}

func TestTranslate_Example2_Pipeline(t *testing.T) {
	tr := newTestTranslator(t)

	res, err := tr.Translate("average quantity by location where price > 50", models.BackendPipeline, "sales")
	require.NoError(t, err)

	assert.Equal(t, models.IntentAverageByGroupFiltered, res.Intent)
	assert.Equal(t,
		[]models.StageKind{models.StageMatch, models.StageGroup, models.StageSort},
		res.Query.Pipeline.Kinds())
	assert.Nil(t, res.Query.SQL)
}

func TestTranslate_Example3_TopN(t *testing.T) {
	tr := newTestTranslator(t)

	res, err := tr.Translate("top 3 sales by payment_method", models.BackendSQL, "sales")
	require.NoError(t, err)

	assert.Equal(t, models.IntentTopN, res.Intent)
	assert.Equal(t, models.BoundParameters{Metric: "sales", GroupBy: "payment_method", Limit: 3}, res.Parameters)
}

func TestTranslate_Example4_Unrecognized(t *testing.T) {
	tr := newTestTranslator(t)

	res, err := tr.Translate("show me stuff", models.BackendSQL, "sales")
	assert.ErrorIs(t, err, ErrUnrecognized)
	assert.Nil(t, res)
}

func TestTranslate_AllOrNothing(t *testing.T) {
	tr := newTestTranslator(t)

	tests := []struct {
		name     string
		question string
		backend  models.Backend
		target   string
		wantErr  error
	}{
		{"bad limit", "top 0 sales by category", models.BackendSQL, "sales", ErrMalformedLimit},
		{"unknown field", "total sales by category where colour is red", models.BackendPipeline, "sales", ErrUnknownField},
		{"type mismatch", "average price by category where quantity > lots", models.BackendSearch, "sales", ErrTypeMismatch},
		{"unknown backend", "total price by category", "graph", "sales", ErrUnsupportedBackend},
		{"missing target", "total price by category", models.BackendSQL, "", ErrMissingTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tr.Translate(tt.question, tt.backend, tt.target)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)
		})
	}
}

func TestTranslate_InjectionStaysInArgs(t *testing.T) {
	tr := newTestTranslator(t)

	res, err := tr.Translate("total sales by category where location is asia'; drop table sales; --",
		models.BackendSQL, "sales")
	require.NoError(t, err)

	assert.NotContains(t, res.Query.SQL.Query, "drop")
	assert.Equal(t, []interface{}{"asia'; drop table sales; --"}, res.Query.SQL.Args)
}

func TestBuild_ValidatesHandBuiltParameters(t *testing.T) {
	tr := newTestTranslator(t)

	tests := []struct {
		name    string
		intent  models.Intent
		params  models.BoundParameters
		wantErr error
	}{
		{"missing metric", models.IntentTotalByGroup, models.BoundParameters{GroupBy: "category"}, ErrMalformedFragments},
		{"missing group", models.IntentTotalByGroup, models.BoundParameters{Metric: "price"}, ErrMalformedFragments},
		{"missing filter", models.IntentTotalForValue, models.BoundParameters{Metric: "price"}, ErrMalformedFragments},
		{"zero limit", models.IntentTopN, models.BoundParameters{Metric: "price", GroupBy: "category"}, ErrMalformedLimit},
		{"unknown column", models.IntentTotalByGroupFiltered, models.BoundParameters{
			Metric: "price", GroupBy: "category",
			Filter: &models.Filter{Column: "colour", Operator: models.OpEq, Value: models.StringValue("red")},
		}, ErrUnknownField},
		{"string value on numeric column", models.IntentTotalByGroupFiltered, models.BoundParameters{
			Metric: "price", GroupBy: "category",
			Filter: &models.Filter{Column: "price", Operator: models.OpEq, Value: models.StringValue("red")},
		}, ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Build(tt.intent, tt.params, models.BackendSQL, "sales")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTranslate_ReservedMetricCountsRows(t *testing.T) {
	tr := newTestTranslator(t)

	for _, q := range []string{
		"total sales by category",
		"total sales by location where price > 10",
		"top 2 sales by payment_method",
		"total sales for category books",
	} {
		t.Run(q, func(t *testing.T) {
			sqlRes, err := tr.Translate(q, models.BackendSQL, "sales")
			require.NoError(t, err)
			assert.Contains(t, sqlRes.Query.SQL.Query, "COUNT(*) AS total_sales")
			assert.NotContains(t, sqlRes.Query.SQL.Query, "SUM(sales)")

			pipeRes, err := tr.Translate(q, models.BackendPipeline, "sales")
			require.NoError(t, err)
			found := false
			for _, s := range pipeRes.Query.Pipeline {
				if s.Kind != models.StageGroup {
					continue
				}
				found = true
				assert.Equal(t, "total_sales", s.Spec[1].Key)
				assert.Equal(t, bson.D{{Key: "$sum", Value: 1}}, s.Spec[1].Value)
			}
			assert.True(t, found)
		})
	}
}

// ==========================
// Vocabulary Tests
// ==========================

func TestNewVocabulary(t *testing.T) {
	v, err := NewVocabulary(VocabularySpec{
		NumericFilters: []string{" Price "},
		StringFilters:  []string{"City"},
		SampleValues:   map[string][]string{"city": {"Oslo"}},
	})
	require.NoError(t, err)

	kind, ok := v.Classify("price")
	assert.True(t, ok)
	assert.Equal(t, FieldNumeric, kind)

	kind, ok = v.Classify("city")
	assert.True(t, ok)
	assert.Equal(t, FieldString, kind)

	_, ok = v.Classify("sales")
	assert.False(t, ok)

	assert.Equal(t, []string{"city", "price"}, v.Fields())
	assert.Equal(t, []string{"Oslo"}, v.SampleValues("city"))
}

func TestNewVocabulary_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec VocabularySpec
	}{
		{"empty", VocabularySpec{}},
		{"overlap", VocabularySpec{NumericFilters: []string{"price"}, StringFilters: []string{"price"}}},
		{"reserved", VocabularySpec{NumericFilters: []string{"sales"}}},
		{"samples for numeric", VocabularySpec{
			NumericFilters: []string{"price"},
			SampleValues:   map[string][]string{"price": {"1"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVocabulary(tt.spec)
			assert.ErrorIs(t, err, ErrInvalidVocabulary)
		})
	}
}

func TestVocabulary_ReturnsCopies(t *testing.T) {
	v := DefaultVocabulary()
	groups := v.Groups()
	groups[0] = "mutated"
	assert.NotEqual(t, "mutated", v.Groups()[0])
}

func TestCode(t *testing.T) {
	assert.Equal(t, "MALFORMED_LIMIT", Code(fmt.Errorf("wrap: %w", ErrMalformedLimit)))
	assert.Equal(t, "TRANSLATION_FAILED", Code(fmt.Errorf("other")))
}
