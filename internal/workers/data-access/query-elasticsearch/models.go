// internal/workers/data-access/query-elasticsearch/models.go
package queryelasticsearch

import "chatdb-workers/internal/models"

type Input struct {
	Search *models.SearchRequest `json:"search"`
}

// Row is one result line: a bucket of the group aggregation, or the whole
// index for ungrouped requests.
type Row struct {
	Key      interface{}              `json:"key,omitempty"`
	DocCount int64                    `json:"docCount"`
	Values   map[string]interface{}   `json:"values,omitempty"`
	Records  []map[string]interface{} `json:"records,omitempty"`
}

type Output struct {
	Rows         []Row                  `json:"rows"`
	RowCount     int                    `json:"rowCount"`
	Aggregations map[string]interface{} `json:"aggregations,omitempty"`
	TotalHits    int64                  `json:"totalHits"`
	Took         int64                  `json:"took"` // milliseconds
	Cached       bool                   `json:"cached"`
}

const inputSchema = `{
  "type": "object",
  "required": ["search"],
  "properties": {
    "search": {
      "type": "object",
      "required": ["index", "body"],
      "properties": {
        "index": {"type": "string", "minLength": 1},
        "body": {"type": "object"}
      }
    }
  }
}`
