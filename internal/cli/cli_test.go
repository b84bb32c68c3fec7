package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ==========================
// Command tree
// ==========================

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "nlq", cmd.Use)

	for _, name := range []string{"translate", "samples", "catalog"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "json", format.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "catalog", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// ==========================
// translate
// ==========================

func TestTranslate_JSON(t *testing.T) {
	out, err := execute(t, "translate", "total", "price", "by", "category")
	require.NoError(t, err)

	var res struct {
		Intent string `json:"intent"`
		Query  struct {
			Backend string `json:"backend"`
			SQL     struct {
				Query string `json:"query"`
			} `json:"sql"`
		} `json:"query"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "total_by_group", res.Intent)
	assert.Equal(t, "SELECT category, SUM(price) AS total_price FROM sales GROUP BY category ORDER BY total_price DESC", res.Query.SQL.Query)
}

func TestTranslate_TextDialect(t *testing.T) {
	out, err := execute(t, "translate", "--format", "text", "--backend", "sqlite",
		"total price by category where quantity > 5")
	require.NoError(t, err)

	assert.Contains(t, out, "intent: total_by_group_filtered")
	assert.Contains(t, out, "WHERE quantity > ?")
	assert.Contains(t, out, "args: [5]")
}

func TestTranslate_TextPipeline(t *testing.T) {
	out, err := execute(t, "translate", "--format", "text", "-b", "mongodb", "-t", "orders",
		"top 3 price by category")
	require.NoError(t, err)
	assert.Contains(t, out, "db.orders.aggregate([")
	assert.Contains(t, out, `{"$limit":3}`)
}

func TestTranslate_Errors(t *testing.T) {
	_, err := execute(t, "translate", "what is the weather")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNRECOGNIZED_QUERY")

	_, err = execute(t, "translate", "--backend", "graphql", "total price by category")
	assert.Error(t, err)

	_, err = execute(t, "translate")
	assert.Error(t, err)

	_, err = execute(t, "translate", "--config", "/nonexistent/config.yaml", "total price by category")
	assert.Error(t, err)
}

// ==========================
// samples & catalog
// ==========================

func TestSamples_Seeded(t *testing.T) {
	first, err := execute(t, "samples", "--count", "4", "--seed", "42", "--backend", "elasticsearch")
	require.NoError(t, err)
	second, err := execute(t, "samples", "--count", "4", "--seed", "42", "--backend", "elasticsearch")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var samples []struct {
		Question string `json:"question"`
		Query    struct {
			Backend string `json:"backend"`
		} `json:"query"`
	}
	require.NoError(t, json.Unmarshal([]byte(first), &samples))
	require.Len(t, samples, 4)
	for _, s := range samples {
		assert.NotEmpty(t, s.Question)
		assert.Equal(t, "search", s.Query.Backend)
	}
}

func TestSamples_InvalidCount(t *testing.T) {
	_, err := execute(t, "samples", "--count", "0")
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	out, err := execute(t, "catalog")
	require.NoError(t, err)

	var entries []catalogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, 7)
	for _, e := range entries {
		assert.NotEmpty(t, e.Rule)
	}
}
