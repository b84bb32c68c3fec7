package translator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"chatdb-workers/internal/models"
)

// fragmentCount is the positional contract between the catalog and Bind:
//
//	by-group            metric, groupBy
//	by-group filtered   metric, groupBy, column, operator, value
//	for-value           metric, column, value
//	top-n               limit, metric, groupBy
var fragmentCount = map[models.Intent]int{
	models.IntentTotalByGroup:           2,
	models.IntentAverageByGroup:         2,
	models.IntentTotalByGroupFiltered:   5,
	models.IntentAverageByGroupFiltered: 5,
	models.IntentTotalForValue:          3,
	models.IntentAverageForValue:        3,
	models.IntentTopN:                   3,
}

// Bind turns the fragments captured for intent into typed parameters,
// classifying and typing any filter against vocab.
func Bind(vocab *Vocabulary, intent models.Intent, fragments Fragments) (models.BoundParameters, error) {
	want, ok := fragmentCount[intent]
	if !ok {
		return models.BoundParameters{}, fmt.Errorf("%w: unknown intent %q", ErrMalformedFragments, intent)
	}
	if len(fragments) != want {
		return models.BoundParameters{}, fmt.Errorf("%w: %s expects %d fragments, got %d",
			ErrMalformedFragments, intent, want, len(fragments))
	}

	f := make([]string, len(fragments))
	for i, s := range fragments {
		f[i] = strings.TrimSpace(s)
		if f[i] == "" {
			return models.BoundParameters{}, fmt.Errorf("%w: fragment %d is empty", ErrMalformedFragments, i)
		}
	}

	switch intent {
	case models.IntentTotalByGroup, models.IntentAverageByGroup:
		return models.BoundParameters{Metric: f[0], GroupBy: f[1]}, nil

	case models.IntentTotalByGroupFiltered, models.IntentAverageByGroupFiltered:
		op, err := parseOperator(f[3])
		if err != nil {
			return models.BoundParameters{}, err
		}
		filter, err := bindFilter(vocab, f[2], op, f[4])
		if err != nil {
			return models.BoundParameters{}, err
		}
		return models.BoundParameters{Metric: f[0], GroupBy: f[1], Filter: filter}, nil

	case models.IntentTotalForValue, models.IntentAverageForValue:
		filter, err := bindFilter(vocab, f[1], models.OpEq, f[2])
		if err != nil {
			return models.BoundParameters{}, err
		}
		return models.BoundParameters{Metric: f[0], Filter: filter}, nil

	default: // top-n
		limit, err := parseLimit(f[0])
		if err != nil {
			return models.BoundParameters{}, err
		}
		return models.BoundParameters{Metric: f[1], GroupBy: f[2], Limit: limit}, nil
	}
}

func parseOperator(tok string) (models.Operator, error) {
	switch tok {
	case ">":
		return models.OpGt, nil
	case "<":
		return models.OpLt, nil
	case "=", "is":
		return models.OpEq, nil
	}
	return "", fmt.Errorf("%w: unknown operator %q", ErrMalformedFragments, tok)
}

func parseLimit(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q is not a positive integer", ErrMalformedLimit, raw)
	}
	return n, nil
}

func bindFilter(vocab *Vocabulary, column string, op models.Operator, raw string) (*models.Filter, error) {
	kind, ok := vocab.Classify(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a filterable column", ErrUnknownField, column)
	}

	filter := &models.Filter{Column: column, Operator: op}
	switch kind {
	case FieldNumeric:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%w: %s expects a number, got %q", ErrTypeMismatch, column, raw)
		}
		filter.Value = models.NumericValue(n)
	default:
		if op != models.OpEq {
			return nil, fmt.Errorf("%w: %s is a text column and only supports equality", ErrTypeMismatch, column)
		}
		filter.Value = models.StringValue(raw)
	}
	return filter, nil
}

// checkParameters applies the Bind invariants to parameters that may have
// been built by hand, so every renderer sees the same validated input.
func checkParameters(vocab *Vocabulary, intent models.Intent, p models.BoundParameters) error {
	if !intent.Valid() {
		return fmt.Errorf("%w: unknown intent %q", ErrMalformedFragments, intent)
	}
	if p.Metric == "" {
		return fmt.Errorf("%w: metric is required", ErrMalformedFragments)
	}
	if intent.IsGrouped() && p.GroupBy == "" {
		return fmt.Errorf("%w: %s requires a group", ErrMalformedFragments, intent)
	}

	switch intent {
	case models.IntentTotalByGroupFiltered, models.IntentAverageByGroupFiltered,
		models.IntentTotalForValue, models.IntentAverageForValue:
		if p.Filter == nil {
			return fmt.Errorf("%w: %s requires a filter", ErrMalformedFragments, intent)
		}
	case models.IntentTopN:
		if p.Limit <= 0 {
			return fmt.Errorf("%w: %d is not a positive integer", ErrMalformedLimit, p.Limit)
		}
	}

	if p.Filter == nil {
		return nil
	}
	kind, ok := vocab.Classify(p.Filter.Column)
	if !ok {
		return fmt.Errorf("%w: %q is not a filterable column", ErrUnknownField, p.Filter.Column)
	}
	switch {
	case kind == FieldNumeric && p.Filter.Value.Kind != models.ValueNumeric,
		kind == FieldString && p.Filter.Value.Kind != models.ValueString,
		kind == FieldString && p.Filter.Operator != models.OpEq:
		return fmt.Errorf("%w: %s", ErrTypeMismatch, p.Filter)
	}
	return nil
}
