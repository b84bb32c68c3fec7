// internal/models/parameters.go
package models

import (
	"fmt"
	"strconv"
)

// Operator is a normalized filter comparison.
type Operator string

const (
	OpGt Operator = "gt"
	OpLt Operator = "lt"
	OpEq Operator = "eq"
)

// SQL returns the comparison symbol used in relational statements.
func (o Operator) SQL() string {
	switch o {
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	default:
		return "="
	}
}

// ValueKind tells whether a filter value is compared as text or as a number.
type ValueKind string

const (
	ValueString  ValueKind = "string"
	ValueNumeric ValueKind = "numeric"
)

// FilterValue is a typed literal extracted from the sentence.
type FilterValue struct {
	Kind   ValueKind `json:"kind"`
	Text   string    `json:"text,omitempty"`
	Number float64   `json:"number,omitempty"`
}

// StringValue builds a text filter value.
func StringValue(s string) FilterValue {
	return FilterValue{Kind: ValueString, Text: s}
}

// NumericValue builds a numeric filter value.
func NumericValue(n float64) FilterValue {
	return FilterValue{Kind: ValueNumeric, Number: n}
}

// Any returns the value as it should be handed to a driver.
func (v FilterValue) Any() interface{} {
	if v.Kind == ValueNumeric {
		return v.Number
	}
	return v.Text
}

func (v FilterValue) String() string {
	if v.Kind == ValueNumeric {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// Filter is a single predicate on a classified column.
type Filter struct {
	Column   string      `json:"column"`
	Operator Operator    `json:"operator"`
	Value    FilterValue `json:"value"`
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %s", f.Column, f.Operator.SQL(), f.Value)
}

// BoundParameters is the typed, validated parameter set of a matched sentence.
type BoundParameters struct {
	Metric  string  `json:"metric"`
	GroupBy string  `json:"groupBy,omitempty"`
	Filter  *Filter `json:"filter,omitempty"`
	Limit   int     `json:"limit,omitempty"`
}

// CountsRows reports whether the metric is the reserved row-count keyword.
func (p BoundParameters) CountsRows() bool {
	return p.Metric == ReservedCountMetric
}

// Alias is the name of the aggregated column, shared by every backend.
func (p BoundParameters) Alias(intent Intent) string {
	if intent.IsAverage() {
		return "avg_" + p.Metric
	}
	return "total_" + p.Metric
}
