// internal/models/backend_query.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SQLDialect selects placeholder and identifier quoting rules.
type SQLDialect string

const (
	DialectPostgres SQLDialect = "postgres"
	DialectMySQL    SQLDialect = "mysql"
	DialectSQLite   SQLDialect = "sqlite"
)

// SQLStatement is a parameterized relational statement.
type SQLStatement struct {
	Query   string        `json:"query"`
	Args    []interface{} `json:"args"`
	Dialect SQLDialect    `json:"dialect"`
}

// StageKind names a document-store aggregation step.
type StageKind string

const (
	StageMatch   StageKind = "match"
	StageGroup   StageKind = "group"
	StageSort    StageKind = "sort"
	StageLimit   StageKind = "limit"
	StageProject StageKind = "project"
)

// Operator returns the aggregation operator for the stage kind.
func (k StageKind) Operator() string {
	return "$" + string(k)
}

// Stage is one step of an aggregation pipeline. Limit stages keep their count
// in Limit and leave Spec empty.
type Stage struct {
	Kind  StageKind `json:"kind"`
	Spec  bson.D    `json:"spec,omitempty"`
	Limit int64     `json:"limit,omitempty"`
}

// Document renders the stage as a single-key document such as {$match: {...}}.
func (s Stage) Document() bson.D {
	if s.Kind == StageLimit {
		return bson.D{{Key: s.Kind.Operator(), Value: s.Limit}}
	}
	return bson.D{{Key: s.Kind.Operator(), Value: s.Spec}}
}

// Pipeline is an ordered list of aggregation stages.
type Pipeline []Stage

// Kinds lists the stage kinds in order.
func (p Pipeline) Kinds() []StageKind {
	kinds := make([]StageKind, len(p))
	for i, s := range p {
		kinds[i] = s.Kind
	}
	return kinds
}

// Mongo converts the pipeline into the form accepted by Collection.Aggregate.
func (p Pipeline) Mongo() mongo.Pipeline {
	out := make(mongo.Pipeline, len(p))
	for i, s := range p {
		out[i] = s.Document()
	}
	return out
}

// ExtJSON renders the pipeline as relaxed extended JSON, the shape job
// variables and the CLI carry.
func (p Pipeline) ExtJSON() ([]byte, error) {
	docs := make(bson.A, len(p))
	for i, s := range p {
		docs[i] = s.Document()
	}
	return bson.MarshalExtJSON(bson.D{{Key: "pipeline", Value: docs}}, false, false)
}

// MarshalJSON encodes the pipeline as an array of stage documents in relaxed
// extended JSON.
func (p Pipeline) MarshalJSON() ([]byte, error) {
	raw, err := p.ExtJSON()
	if err != nil {
		return nil, err
	}
	var doc struct {
		Pipeline json.RawMessage `json:"pipeline"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc.Pipeline, nil
}

// UnmarshalJSON accepts the array produced by MarshalJSON.
func (p *Pipeline) UnmarshalJSON(data []byte) error {
	wrapped := append(append([]byte(`{"pipeline":`), data...), '}')

	var doc struct {
		Pipeline []bson.D `bson:"pipeline"`
	}
	if err := bson.UnmarshalExtJSON(wrapped, false, &doc); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	stages := make(Pipeline, 0, len(doc.Pipeline))
	for i, d := range doc.Pipeline {
		s, err := ParseStage(d)
		if err != nil {
			return fmt.Errorf("pipeline stage %d: %w", i, err)
		}
		stages = append(stages, s)
	}
	*p = stages
	return nil
}

// ParseStage is the inverse of Stage.Document.
func ParseStage(d bson.D) (Stage, error) {
	if len(d) != 1 || !strings.HasPrefix(d[0].Key, "$") {
		return Stage{}, fmt.Errorf("a stage is a single $operator document")
	}
	kind := StageKind(strings.TrimPrefix(d[0].Key, "$"))

	switch kind {
	case StageLimit:
		var n int64
		switch v := d[0].Value.(type) {
		case int32:
			n = int64(v)
		case int64:
			n = v
		case float64:
			n = int64(v)
		default:
			return Stage{}, fmt.Errorf("$limit needs a number, got %T", v)
		}
		if n <= 0 {
			return Stage{}, fmt.Errorf("$limit must be positive")
		}
		return Stage{Kind: kind, Limit: n}, nil
	case StageMatch, StageGroup, StageSort, StageProject:
		spec, ok := d[0].Value.(bson.D)
		if !ok {
			return Stage{}, fmt.Errorf("%s needs a document, got %T", d[0].Key, d[0].Value)
		}
		return Stage{Kind: kind, Spec: spec}, nil
	}
	return Stage{}, fmt.Errorf("unsupported stage %s", d[0].Key)
}

// SearchRequest is an aggregation request against a search index.
type SearchRequest struct {
	Index string                 `json:"index"`
	Body  map[string]interface{} `json:"body"`
}

// BackendQuery is the rendered query handed to an executor. Exactly one of
// SQL, Pipeline or Search is set, matching Backend.
type BackendQuery struct {
	Backend  Backend        `json:"backend"`
	Target   string         `json:"target"`
	SQL      *SQLStatement  `json:"sql,omitempty"`
	Pipeline Pipeline       `json:"pipeline,omitempty"`
	Search   *SearchRequest `json:"search,omitempty"`
}
