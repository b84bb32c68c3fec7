package translatequery

import "chatdb-workers/internal/models"

type Input struct {
	Question string `json:"question"`
	Backend  string `json:"backend,omitempty"`
	Target   string `json:"target,omitempty"`
}

type Output struct {
	TranslationID string                 `json:"translationId"`
	Question      string                 `json:"question"`
	Intent        models.Intent          `json:"intent"`
	Backend       models.Backend         `json:"backend"`
	Target        string                 `json:"target"`
	Parameters    models.BoundParameters `json:"parameters"`
	SQL           *models.SQLStatement   `json:"sql,omitempty"`
	Pipeline      models.Pipeline        `json:"pipeline,omitempty"`
	Search        *models.SearchRequest  `json:"search,omitempty"`
}

const inputSchema = `{
  "type": "object",
  "required": ["question"],
  "properties": {
    "question": {"type": "string", "minLength": 1, "maxLength": 500},
    "backend": {"type": "string"},
    "target": {"type": "string"}
  }
}`
