package querymongodb

import "chatdb-workers/internal/models"

type Input struct {
	Collection string          `json:"collection"`
	Pipeline   models.Pipeline `json:"pipeline"`
	Intent     string          `json:"intent,omitempty"`
}

type Output struct {
	Documents          []map[string]interface{} `json:"documents"`
	DocumentCount      int                      `json:"documentCount"`
	Truncated          bool                     `json:"truncated"`
	Cached             bool                     `json:"cached"`
	QueryExecutionTime int64                    `json:"queryExecutionTime"` // milliseconds
}

const inputSchema = `{
  "type": "object",
  "required": ["collection", "pipeline"],
  "properties": {
    "collection": {"type": "string", "minLength": 1},
    "pipeline": {"type": "array", "minItems": 1, "items": {"type": "object"}},
    "intent": {"type": "string"}
  }
}`
