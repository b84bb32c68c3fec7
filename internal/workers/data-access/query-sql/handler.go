package querysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"chatdb-workers/internal/common/cache"
	"chatdb-workers/internal/common/errors"
	"chatdb-workers/internal/common/logger"
	"chatdb-workers/internal/common/metrics"
	"chatdb-workers/internal/common/validation"
	"chatdb-workers/internal/models"
)

const (
	TaskType = "query-sql"
)

var schema = validation.MustCompile(TaskType, inputSchema)

type Handler struct {
	config  *Config
	db      *sql.DB
	dialect models.SQLDialect
	cache   *cache.ResultCache
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

// NewHandler executes statements rendered for dialect against db. cache may
// be nil.
func NewHandler(config *Config, db *sql.DB, dialect models.SQLDialect, cache *cache.ResultCache, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		db:      db,
		dialect: dialect,
		cache:   cache,
		errors:  errors.NewErrorHandler(log),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	done := metrics.JobStarted(TaskType)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if res := schema.ValidateJSON(job.Variables); !res.Valid {
		done(h.errors.HandleJobError(ctx, client, job, errors.NewInvalidInputError(res.Err().Error())).Code)
		return
	}
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		done(h.errors.HandleJobError(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))).Code)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		done(h.errors.HandleJobError(ctx, client, job, err).Code)
		return
	}

	h.completeJob(client, job, output)
	done("")
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.SQL == nil || strings.TrimSpace(input.SQL.Query) == "" {
		return nil, errors.NewInvalidInputError("sql.query is required")
	}
	stmt := input.SQL
	if stmt.Dialect != "" && stmt.Dialect != h.dialect {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("statement rendered for %s, database is %s", stmt.Dialect, h.dialect))
	}
	if !isReadOnly(stmt.Query) {
		return nil, errors.NewInvalidInputError("only single SELECT statements are executed")
	}

	args := bindArgs(stmt.Args)

	key, err := h.cache.Key(TaskType, h.dialect, stmt.Query, args, h.config.MaxRows)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	var cached Output
	if found, err := h.cache.Get(ctx, key, &cached); err != nil {
		h.logger.Warn("result cache unavailable", map[string]interface{}{"error": err})
	} else if found {
		cached.Cached = true
		return &cached, nil
	}

	start := time.Now()
	rows, err := h.db.QueryContext(ctx, stmt.Query, args...)
	if err != nil {
		return nil, h.mapError(ctx, input.Intent, err)
	}
	defer rows.Close()

	columns, data, truncated, err := scanRows(rows, h.config.MaxRows)
	if err != nil {
		return nil, h.mapError(ctx, input.Intent, err)
	}

	output := &Output{
		Columns:            columns,
		Rows:               data,
		RowCount:           len(data),
		Truncated:          truncated,
		QueryExecutionTime: time.Since(start).Milliseconds(),
	}

	if err := h.cache.Set(ctx, key, output); err != nil {
		h.logger.Warn("failed to cache result", map[string]interface{}{"error": err})
	}
	return output, nil
}

func (h *Handler) mapError(ctx context.Context, intent string, err error) error {
	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded), stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewQueryTimeoutError(intent)
	case stderrors.Is(err, driver.ErrBadConn), stderrors.Is(err, sql.ErrConnDone):
		return errors.NewDatabaseConnectionFailedError(err)
	default:
		return errors.NewQueryExecutionFailedError(intent, err)
	}
}

// isReadOnly accepts one SELECT statement, optionally terminated by ';'.
func isReadOnly(query string) bool {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	if strings.Contains(q, ";") {
		return false
	}
	fields := strings.Fields(q)
	return len(fields) > 0 && strings.EqualFold(fields[0], "SELECT")
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
