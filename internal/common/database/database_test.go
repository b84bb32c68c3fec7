package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatdb-workers/internal/common/config"
	"chatdb-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQL_SQLite(t *testing.T) {
	client, err := NewSQL(config.SQLConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, models.DialectSQLite, client.Dialect)
	require.NoError(t, client.Ping(context.Background()))

	var n int
	require.NoError(t, client.DB.QueryRow("SELECT 1 + 1").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestNewSQL_UnknownDriver(t *testing.T) {
	_, err := NewSQL(config.SQLConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNewRedis_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewElasticsearch_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))
}
