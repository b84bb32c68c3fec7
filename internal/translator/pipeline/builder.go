// Package pipeline renders bound query parameters as a document-store
// aggregation pipeline.
package pipeline

import (
	"fmt"
	"regexp"

	"chatdb-workers/internal/models"

	"go.mongodb.org/mongo-driver/bson"
)

// RecordsField holds the per-group record list of a top-n pipeline.
const RecordsField = "records"

var comparison = map[models.Operator]string{
	models.OpGt: "$gt",
	models.OpLt: "$lt",
	models.OpEq: "$eq",
}

// Builder renders pipelines. It has no state.
type Builder struct{}

func New() *Builder {
	return &Builder{}
}

// Build renders intent as an ordered stage list: optional match, group,
// sort and, for top-n, limit.
func (b *Builder) Build(intent models.Intent, p models.BoundParameters) (models.Pipeline, error) {
	if !intent.Valid() {
		return nil, fmt.Errorf("unknown intent %q", intent)
	}
	if intent == models.IntentTopN {
		return b.topN(p), nil
	}

	var out models.Pipeline
	if p.Filter != nil {
		out = append(out, models.Stage{Kind: models.StageMatch, Spec: matchSpec(p.Filter)})
	}

	alias := p.Alias(intent)
	var key interface{}
	if intent.IsGrouped() {
		key = "$" + p.GroupBy
	}

	out = append(out,
		models.Stage{Kind: models.StageGroup, Spec: bson.D{
			{Key: "_id", Value: key},
			{Key: alias, Value: accumulator(intent, p)},
		}},
		models.Stage{Kind: models.StageSort, Spec: bson.D{{Key: alias, Value: -1}}},
	)
	return out, nil
}

// topN groups by p.GroupBy, keeps the groups with the largest totals and,
// for field metrics, the p.Limit largest records of each group. Records are
// sorted by the metric before grouping so $push accumulates them in order.
func (b *Builder) topN(p models.BoundParameters) models.Pipeline {
	alias := p.Alias(models.IntentTopN)
	limit := int64(p.Limit)
	key := "$" + p.GroupBy

	if p.CountsRows() {
		return models.Pipeline{
			{Kind: models.StageGroup, Spec: bson.D{
				{Key: "_id", Value: key},
				{Key: alias, Value: bson.D{{Key: "$sum", Value: 1}}},
			}},
			{Kind: models.StageSort, Spec: bson.D{{Key: alias, Value: -1}}},
			{Kind: models.StageLimit, Limit: limit},
		}
	}

	metric := "$" + p.Metric
	return models.Pipeline{
		{Kind: models.StageSort, Spec: bson.D{{Key: p.Metric, Value: -1}}},
		{Kind: models.StageGroup, Spec: bson.D{
			{Key: "_id", Value: key},
			{Key: alias, Value: bson.D{{Key: "$sum", Value: metric}}},
			{Key: RecordsField, Value: bson.D{{Key: "$push", Value: bson.D{
				{Key: "record", Value: "$$ROOT"},
				{Key: "metric", Value: metric},
			}}}},
		}},
		{Kind: models.StageSort, Spec: bson.D{{Key: alias, Value: -1}}},
		{Kind: models.StageLimit, Limit: limit},
		{Kind: models.StageProject, Spec: bson.D{
			{Key: alias, Value: 1},
			{Key: RecordsField, Value: bson.D{{Key: "$slice", Value: bson.A{"$" + RecordsField, limit}}}},
		}},
	}
}

func accumulator(intent models.Intent, p models.BoundParameters) bson.D {
	if p.CountsRows() {
		return bson.D{{Key: "$sum", Value: 1}}
	}
	if intent.IsAverage() {
		return bson.D{{Key: "$avg", Value: "$" + p.Metric}}
	}
	return bson.D{{Key: "$sum", Value: "$" + p.Metric}}
}

// matchSpec renders numeric filters as a comparison and text filters as an
// anchored case-insensitive regex, which is an exact match ignoring case.
func matchSpec(f *models.Filter) bson.D {
	if f.Value.Kind == models.ValueString {
		return bson.D{{Key: f.Column, Value: bson.D{
			{Key: "$regex", Value: "^" + regexp.QuoteMeta(f.Value.Text) + "$"},
			{Key: "$options", Value: "i"},
		}}}
	}
	return bson.D{{Key: f.Column, Value: bson.D{{Key: comparison[f.Operator], Value: f.Value.Number}}}}
}
