package samplequeries

import "chatdb-workers/internal/translator/samples"

type Input struct {
	Count   int     `json:"count"`
	Backend string  `json:"backend,omitempty"`
	Target  string  `json:"target,omitempty"`
	Seed    *uint64 `json:"seed,omitempty"`
}

type Output struct {
	Samples []samples.Sample `json:"samples"`
	Count   int              `json:"count"`
}

const inputSchema = `{
  "type": "object",
  "required": ["count"],
  "properties": {
    "count": {"type": "integer", "minimum": 1},
    "backend": {"type": "string"},
    "target": {"type": "string"},
    "seed": {"type": "integer", "minimum": 0}
  }
}`
