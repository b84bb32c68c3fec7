package translator

import (
	"fmt"
	"sort"
	"strings"

	"chatdb-workers/internal/models"
)

// FieldKind classifies a filterable column.
type FieldKind int

const (
	FieldString FieldKind = iota + 1
	FieldNumeric
)

func (k FieldKind) String() string {
	switch k {
	case FieldString:
		return "string"
	case FieldNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// VocabularySpec is the plain description a Vocabulary is built from.
type VocabularySpec struct {
	NumericFilters []string
	StringFilters  []string
	TotalMetrics   []string
	AverageMetrics []string
	Groups         []string
	SampleValues   map[string][]string
}

// Vocabulary holds the field classification and the metric and group names
// used to generate sample sentences. It never changes after NewVocabulary.
type Vocabulary struct {
	kinds          map[string]FieldKind
	numeric        []string
	strs           []string
	totalMetrics   []string
	averageMetrics []string
	groups         []string
	sampleValues   map[string][]string
}

// NewVocabulary validates spec. Field names are lower-cased to match
// normalized input; a column may not be both string and numeric.
func NewVocabulary(spec VocabularySpec) (*Vocabulary, error) {
	v := &Vocabulary{
		kinds:          make(map[string]FieldKind),
		numeric:        lowerAll(spec.NumericFilters),
		strs:           lowerAll(spec.StringFilters),
		totalMetrics:   lowerAll(spec.TotalMetrics),
		averageMetrics: lowerAll(spec.AverageMetrics),
		groups:         lowerAll(spec.Groups),
		sampleValues:   make(map[string][]string, len(spec.SampleValues)),
	}

	if len(v.numeric)+len(v.strs) == 0 {
		return nil, fmt.Errorf("%w: no filterable fields", ErrInvalidVocabulary)
	}

	for _, f := range v.numeric {
		v.kinds[f] = FieldNumeric
	}
	for _, f := range v.strs {
		if v.kinds[f] == FieldNumeric {
			return nil, fmt.Errorf("%w: field %q is both string and numeric", ErrInvalidVocabulary, f)
		}
		v.kinds[f] = FieldString
	}
	if v.kinds[models.ReservedCountMetric] != 0 {
		return nil, fmt.Errorf("%w: %q is reserved for row counts", ErrInvalidVocabulary, models.ReservedCountMetric)
	}

	for col, values := range spec.SampleValues {
		col = strings.ToLower(strings.TrimSpace(col))
		if v.kinds[col] != FieldString {
			return nil, fmt.Errorf("%w: sample values for %q, which is not a string filter", ErrInvalidVocabulary, col)
		}
		v.sampleValues[col] = append([]string(nil), values...)
	}

	return v, nil
}

// DefaultVocabulary is the retail sales dataset the service ships with.
func DefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(VocabularySpec{
		NumericFilters: []string{"price", "quantity", "discount", "customer_age", "total_revenue"},
		StringFilters:  []string{"location", "category", "payment_method"},
		TotalMetrics:   []string{"sales", "total_revenue"},
		AverageMetrics: []string{"quantity", "price", "total_revenue"},
		Groups:         []string{"category", "location", "payment_method"},
		SampleValues: map[string][]string{
			"location":       {"Asia", "Europe", "North America"},
			"category":       {"Electronics", "Clothing", "Sports", "Books"},
			"payment_method": {"Credit Card", "Debit Card", "PayPal"},
		},
	})
	if err != nil {
		panic(err)
	}
	return v
}

// Classify reports whether field is filterable and how its values are typed.
func (v *Vocabulary) Classify(field string) (FieldKind, bool) {
	k, ok := v.kinds[field]
	return k, ok
}

func (v *Vocabulary) NumericFilters() []string { return clone(v.numeric) }
func (v *Vocabulary) StringFilters() []string  { return clone(v.strs) }
func (v *Vocabulary) TotalMetrics() []string   { return clone(v.totalMetrics) }
func (v *Vocabulary) AverageMetrics() []string { return clone(v.averageMetrics) }
func (v *Vocabulary) Groups() []string         { return clone(v.groups) }

// SampleValues returns example values for a string column, if any.
func (v *Vocabulary) SampleValues(column string) []string {
	return clone(v.sampleValues[column])
}

// Fields lists every classified column in sorted order.
func (v *Vocabulary) Fields() []string {
	out := make([]string, 0, len(v.kinds))
	for f := range v.kinds {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clone(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
