// Package search renders bound query parameters as an Elasticsearch
// aggregation request body.
package search

import (
	"fmt"

	"chatdb-workers/internal/models"
)

const (
	// GroupAggregation is the name of the terms aggregation over the group field.
	GroupAggregation = "groups"
	// TopRecordsAggregation carries each bucket's top documents for top-n.
	TopRecordsAggregation = "top_records"

	defaultMaxBuckets = 100
)

var rangeOperator = map[models.Operator]string{
	models.OpGt: "gt",
	models.OpLt: "lt",
}

type Config struct {
	// MaxBuckets caps the number of groups returned by by-group intents.
	MaxBuckets int
}

type Builder struct {
	maxBuckets int
}

func New(cfg Config) *Builder {
	if cfg.MaxBuckets <= 0 {
		cfg.MaxBuckets = defaultMaxBuckets
	}
	return &Builder{maxBuckets: cfg.MaxBuckets}
}

// Build renders intent against index. Hits are never returned; results are
// read from the aggregations (or hits.total for an ungrouped row count).
func (b *Builder) Build(intent models.Intent, p models.BoundParameters, index string) (*models.SearchRequest, error) {
	if !intent.Valid() {
		return nil, fmt.Errorf("unknown intent %q", intent)
	}
	if index == "" {
		return nil, fmt.Errorf("index name is required")
	}

	body := map[string]interface{}{
		"size":             0,
		"track_total_hits": true,
	}
	if p.Filter != nil {
		body["query"] = map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{filterClause(p.Filter)},
			},
		}
	}

	alias := p.Alias(intent)
	metricAggs := map[string]interface{}{}
	if !p.CountsRows() {
		metricAggs[alias] = metricAggregation(intent, p.Metric)
	}

	if !intent.IsGrouped() {
		if len(metricAggs) > 0 {
			body["aggs"] = metricAggs
		}
		return &models.SearchRequest{Index: index, Body: body}, nil
	}

	size := b.maxBuckets
	if intent == models.IntentTopN {
		size = p.Limit
		if !p.CountsRows() {
			metricAggs[TopRecordsAggregation] = map[string]interface{}{
				"top_hits": map[string]interface{}{
					"size": p.Limit,
					"sort": []interface{}{
						map[string]interface{}{p.Metric: map[string]interface{}{"order": "desc"}},
					},
				},
			}
		}
	}

	order := map[string]interface{}{"_count": "desc"}
	if !p.CountsRows() {
		order = map[string]interface{}{alias: "desc"}
	}

	terms := map[string]interface{}{
		"terms": map[string]interface{}{
			"field": p.GroupBy,
			"size":  size,
			"order": order,
		},
	}
	if len(metricAggs) > 0 {
		terms["aggs"] = metricAggs
	}
	body["aggs"] = map[string]interface{}{GroupAggregation: terms}

	return &models.SearchRequest{Index: index, Body: body}, nil
}

func metricAggregation(intent models.Intent, metric string) map[string]interface{} {
	kind := "sum"
	if intent.IsAverage() {
		kind = "avg"
	}
	return map[string]interface{}{kind: map[string]interface{}{"field": metric}}
}

func filterClause(f *models.Filter) map[string]interface{} {
	if f.Value.Kind == models.ValueString {
		return map[string]interface{}{
			"term": map[string]interface{}{
				f.Column: map[string]interface{}{
					"value":            f.Value.Text,
					"case_insensitive": true,
				},
			},
		}
	}
	if op, ok := rangeOperator[f.Operator]; ok {
		return map[string]interface{}{
			"range": map[string]interface{}{
				f.Column: map[string]interface{}{op: f.Value.Number},
			},
		}
	}
	return map[string]interface{}{
		"term": map[string]interface{}{f.Column: f.Value.Number},
	}
}
