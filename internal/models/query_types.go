// internal/models/query_types.go
package models

import "fmt"

// Intent is the recognized category of a natural-language query.
type Intent string

const (
	IntentTotalByGroup           Intent = "total_by_group"
	IntentTotalByGroupFiltered   Intent = "total_by_group_filtered"
	IntentTotalForValue          Intent = "total_for_value"
	IntentAverageByGroup         Intent = "average_by_group"
	IntentAverageByGroupFiltered Intent = "average_by_group_filtered"
	IntentAverageForValue        Intent = "average_for_value"
	IntentTopN                   Intent = "top_n"
)

// Intents lists every intent in catalog declaration order.
var Intents = []Intent{
	IntentTotalByGroupFiltered,
	IntentTotalByGroup,
	IntentTotalForValue,
	IntentAverageByGroupFiltered,
	IntentAverageByGroup,
	IntentAverageForValue,
	IntentTopN,
}

// IsAverage reports whether the intent aggregates with a mean rather than a sum.
func (i Intent) IsAverage() bool {
	switch i {
	case IntentAverageByGroup, IntentAverageByGroupFiltered, IntentAverageForValue:
		return true
	}
	return false
}

// IsGrouped reports whether the intent produces one row per group.
func (i Intent) IsGrouped() bool {
	return i != IntentTotalForValue && i != IntentAverageForValue
}

// Valid reports whether i is one of the declared intents.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// ReservedCountMetric is the metric keyword that always means "number of rows".
const ReservedCountMetric = "sales"

// Backend selects the query renderer.
type Backend string

const (
	BackendSQL      Backend = "sql"
	BackendPipeline Backend = "pipeline"
	BackendSearch   Backend = "search"
)

// ParseBackend accepts the backend names used in job variables and CLI flags.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "sql", "mysql", "postgres", "sqlite":
		return BackendSQL, nil
	case "pipeline", "mongodb", "mongo":
		return BackendPipeline, nil
	case "search", "elasticsearch":
		return BackendSearch, nil
	}
	return "", fmt.Errorf("unknown backend %q", s)
}
