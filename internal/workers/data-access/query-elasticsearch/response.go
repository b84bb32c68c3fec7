package queryelasticsearch

import (
	"encoding/json"
	"fmt"

	"chatdb-workers/internal/translator/search"
)

type searchResponse struct {
	Took     int64 `json:"took"`
	TimedOut bool  `json:"timed_out"`
	Hits     struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

type topHits struct {
	Hits struct {
		Hits []struct {
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

var bucketKeys = map[string]bool{"key": true, "key_as_string": true, "doc_count": true}

// toRows flattens the group aggregation into rows. Requests without one give
// a single row of metric values over all matching documents.
func toRows(resp *searchResponse) ([]Row, error) {
	raw, grouped := resp.Aggregations[search.GroupAggregation]
	if !grouped {
		values, err := metricValues(resp.Aggregations)
		if err != nil {
			return nil, err
		}
		return []Row{{DocCount: resp.Hits.Total.Value, Values: values}}, nil
	}

	var terms struct {
		Buckets []map[string]json.RawMessage `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &terms); err != nil {
		return nil, fmt.Errorf("decode %s aggregation: %w", search.GroupAggregation, err)
	}

	rows := make([]Row, 0, len(terms.Buckets))
	for _, bucket := range terms.Buckets {
		var row Row
		if err := json.Unmarshal(bucket["key"], &row.Key); err != nil {
			return nil, fmt.Errorf("decode bucket key: %w", err)
		}
		if err := json.Unmarshal(bucket["doc_count"], &row.DocCount); err != nil {
			return nil, fmt.Errorf("decode bucket doc_count: %w", err)
		}

		if th, ok := bucket[search.TopRecordsAggregation]; ok {
			var hits topHits
			if err := json.Unmarshal(th, &hits); err != nil {
				return nil, fmt.Errorf("decode %s: %w", search.TopRecordsAggregation, err)
			}
			for _, h := range hits.Hits.Hits {
				row.Records = append(row.Records, h.Source)
			}
		}

		subAggs := make(map[string]json.RawMessage, len(bucket))
		for name, v := range bucket {
			if !bucketKeys[name] && name != search.TopRecordsAggregation {
				subAggs[name] = v
			}
		}
		values, err := metricValues(subAggs)
		if err != nil {
			return nil, err
		}
		row.Values = values
		rows = append(rows, row)
	}
	return rows, nil
}

// metricValues reads single-value metric aggregations ({"value": n}). A
// metric over no documents is null and stays nil.
func metricValues(aggs map[string]json.RawMessage) (map[string]interface{}, error) {
	if len(aggs) == 0 {
		return nil, nil
	}
	values := make(map[string]interface{}, len(aggs))
	for name, raw := range aggs {
		var metric struct {
			Value *float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &metric); err != nil {
			return nil, fmt.Errorf("decode aggregation %s: %w", name, err)
		}
		if metric.Value == nil {
			values[name] = nil
			continue
		}
		values[name] = *metric.Value
	}
	return values, nil
}

func decodeAggregations(aggs map[string]json.RawMessage) (map[string]interface{}, error) {
	if len(aggs) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(aggs))
	for name, raw := range aggs {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode aggregation %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}
