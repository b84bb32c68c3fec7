package querysql

import "chatdb-workers/internal/models"

type Input struct {
	SQL    *models.SQLStatement `json:"sql"`
	Intent string               `json:"intent,omitempty"`
}

type Output struct {
	Columns            []string                 `json:"columns"`
	Rows               []map[string]interface{} `json:"rows"`
	RowCount           int                      `json:"rowCount"`
	Truncated          bool                     `json:"truncated"`
	Cached             bool                     `json:"cached"`
	QueryExecutionTime int64                    `json:"queryExecutionTime"` // milliseconds
}

const inputSchema = `{
  "type": "object",
  "required": ["sql"],
  "properties": {
    "sql": {
      "type": "object",
      "required": ["query"],
      "properties": {
        "query": {"type": "string", "minLength": 1},
        "args": {"type": ["array", "null"]},
        "dialect": {"type": "string", "enum": ["", "postgres", "mysql", "sqlite"]}
      }
    },
    "intent": {"type": "string"}
  }
}`
