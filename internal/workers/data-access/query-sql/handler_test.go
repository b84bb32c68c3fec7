package querysql

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"chatdb-workers/internal/common/cache"
	"chatdb-workers/internal/common/config"
	"chatdb-workers/internal/common/database"
	"chatdb-workers/internal/common/errors"
	"chatdb-workers/internal/common/logger"
	"chatdb-workers/internal/models"
	"chatdb-workers/internal/translator"
)

const topCategories = "SELECT category, SUM(price) AS total_price FROM sales GROUP BY category ORDER BY total_price DESC LIMIT $1"

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		MaxRows: 100,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func newMockHandler(t *testing.T, cfg *Config, rc *cache.ResultCache) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHandler(cfg, db, models.DialectPostgres, rc, createTestLogger(t)), mock
}

func assertErrorCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	var se *errors.StandardError
	require.True(t, stderrors.As(err, &se), "expected StandardError, got %v", err)
	assert.Equal(t, code, se.Code)
}

// ==========================
// Execution
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	h, mock := newMockHandler(t, createTestConfig(), nil)

	// JSON numbers arrive as float64 and are bound as integers
	mock.ExpectQuery(topCategories).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"category", "total_price"}).
			AddRow([]byte("toys"), 120.5).
			AddRow([]byte("books"), 80.0))

	out, err := h.Execute(context.Background(), &Input{
		SQL: &models.SQLStatement{
			Query:   topCategories,
			Args:    []interface{}{3.0},
			Dialect: models.DialectPostgres,
		},
		Intent: string(models.IntentTopN),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"category", "total_price"}, out.Columns)
	assert.Equal(t, 2, out.RowCount)
	assert.False(t, out.Truncated)
	assert.False(t, out.Cached)
	assert.Equal(t, "toys", out.Rows[0]["category"])
	assert.Equal(t, 120.5, out.Rows[0]["total_price"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Truncated(t *testing.T) {
	cfg := createTestConfig()
	cfg.MaxRows = 2
	h, mock := newMockHandler(t, cfg, nil)

	mock.ExpectQuery("SELECT category FROM sales").
		WillReturnRows(sqlmock.NewRows([]string{"category"}).
			AddRow("a").AddRow("b").AddRow("c"))

	out, err := h.Execute(context.Background(), &Input{
		SQL: &models.SQLStatement{Query: "SELECT category FROM sales"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.RowCount)
	assert.True(t, out.Truncated)
}

func TestHandler_Execute_QueryFailure(t *testing.T) {
	h, mock := newMockHandler(t, createTestConfig(), nil)

	mock.ExpectQuery("SELECT nope FROM sales").
		WillReturnError(stderrors.New(`column "nope" does not exist`))

	_, err := h.Execute(context.Background(), &Input{
		SQL:    &models.SQLStatement{Query: "SELECT nope FROM sales"},
		Intent: "total_for_value",
	})
	assertErrorCode(t, err, errors.ErrCodeQueryExecutionFailed)

	var se *errors.StandardError
	require.True(t, stderrors.As(err, &se))
	assert.True(t, se.Retryable)
	assert.Equal(t, "total_for_value", se.Metadata["intent"])
}

func TestHandler_Execute_InvalidStatements(t *testing.T) {
	h, _ := newMockHandler(t, createTestConfig(), nil)

	tests := []struct {
		name  string
		input *Input
	}{
		{"missing statement", &Input{}},
		{"blank query", &Input{SQL: &models.SQLStatement{Query: "  "}}},
		{"write statement", &Input{SQL: &models.SQLStatement{Query: "DELETE FROM sales"}}},
		{"stacked statements", &Input{SQL: &models.SQLStatement{Query: "SELECT 1; DROP TABLE sales"}}},
		{"wrong dialect", &Input{SQL: &models.SQLStatement{Query: "SELECT 1", Dialect: models.DialectMySQL}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			assertErrorCode(t, err, errors.ErrCodeInvalidInput)
		})
	}
}

func TestHandler_MapError(t *testing.T) {
	h, _ := newMockHandler(t, createTestConfig(), nil)

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	assertErrorCode(t, h.mapError(expired, "top_n", stderrors.New("canceling statement")), errors.ErrCodeQueryTimeout)
	assertErrorCode(t, h.mapError(context.Background(), "top_n", driver.ErrBadConn), errors.ErrCodeDatabaseConnectionFailed)
	assertErrorCode(t, h.mapError(context.Background(), "top_n", stderrors.New("boom")), errors.ErrCodeQueryExecutionFailed)
}

func TestIsReadOnly(t *testing.T) {
	assert.True(t, isReadOnly("SELECT 1"))
	assert.True(t, isReadOnly("  select category from sales;"))
	assert.False(t, isReadOnly("UPDATE sales SET price = 0"))
	assert.False(t, isReadOnly("SELECT 1; SELECT 2"))
	assert.False(t, isReadOnly(""))
}

// ==========================
// Result cache
// ==========================

func TestHandler_Execute_Cached(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:", time.Minute)
	h, mock := newMockHandler(t, createTestConfig(), rc)

	input := &Input{SQL: &models.SQLStatement{Query: "SELECT category FROM sales"}}

	// one expectation only: the second call must not reach the database
	mock.ExpectQuery("SELECT category FROM sales").
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("toys"))

	first, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Rows, second.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Translator output against sqlite
// ==========================

func TestHandler_Execute_TranslatedSQLite(t *testing.T) {
	client, err := database.NewSQL(config.SQLConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	_, err = client.DB.ExecContext(ctx, `CREATE TABLE sales (category TEXT, price REAL, quantity INTEGER)`)
	require.NoError(t, err)
	_, err = client.DB.ExecContext(ctx, `INSERT INTO sales VALUES
		('toys', 10.5, 6), ('toys', 4.5, 7), ('books', 20, 1), ('books', 3, 9), ('games', 1, 2)`)
	require.NoError(t, err)

	tr, err := translator.New(nil, translator.DefaultVocabulary(), translator.Config{Dialect: models.DialectSQLite})
	require.NoError(t, err)
	translation, err := tr.Translate("total price by category where quantity > 5", models.BackendSQL, "sales")
	require.NoError(t, err)

	// the statement reaches the worker as process variables
	raw, err := json.Marshal(translation.Query.SQL)
	require.NoError(t, err)
	var stmt models.SQLStatement
	require.NoError(t, json.Unmarshal(raw, &stmt))

	h := NewHandler(createTestConfig(), client.DB, client.Dialect, nil, createTestLogger(t))
	out, err := h.Execute(ctx, &Input{SQL: &stmt})
	require.NoError(t, err)

	require.Equal(t, 2, out.RowCount)
	assert.Equal(t, "toys", out.Rows[0]["category"])
	assert.InDelta(t, 15.0, out.Rows[0]["total_price"], 0.001)
	assert.Equal(t, "books", out.Rows[1]["category"])
	assert.InDelta(t, 3.0, out.Rows[1]["total_price"], 0.001)
}

// ==========================
// Config & input schema
// ==========================

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(&config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, Timeout: 2000},
	}})
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, defaultMaxRows, cfg.MaxRows)
}

func TestInputSchema(t *testing.T) {
	assert.True(t, schema.ValidateJSON(`{"sql": {"query": "SELECT 1", "args": [1], "dialect": "sqlite"}}`).Valid)
	assert.False(t, schema.ValidateJSON(`{}`).Valid)
	assert.False(t, schema.ValidateJSON(`{"sql": {"query": "SELECT 1", "dialect": "oracle"}}`).Valid)
}
