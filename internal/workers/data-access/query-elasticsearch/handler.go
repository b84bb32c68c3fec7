package queryelasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"

	"chatdb-workers/internal/common/cache"
	"chatdb-workers/internal/common/errors"
	"chatdb-workers/internal/common/logger"
	"chatdb-workers/internal/common/metrics"
	"chatdb-workers/internal/common/validation"
)

const (
	TaskType = "query-elasticsearch"
)

var schema = validation.MustCompile(TaskType, inputSchema)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	cache  *cache.ResultCache
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, cache *cache.ResultCache, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		client: client,
		cache:  cache,
		errors: errors.NewErrorHandler(log),
		logger: log,
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

	if res := schema.ValidateJSON(job.Variables); !res.Valid {
		done(h.errors.HandleJobError(ctx, client, job, errors.NewInvalidInputError(res.Err().Error())).Code)
		return
	}
	var input Input
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
	if input == nil || input.Search == nil || input.Search.Index == "" {
		return nil, errors.NewInvalidInputError("search.index is required")
	}
	index := input.Search.Index

	body, err := json.Marshal(input.Search.Body)
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("encode search body: %v", err))
	}

	key, err := h.cache.Key(TaskType, index, json.RawMessage(body))
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

	res, err := h.client.Search(
		h.client.Search.WithContext(ctx),
		h.client.Search.WithIndex(index),
		h.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.NewSearchTimeoutError(index)
		}
		return nil, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, h.responseError(index, res.StatusCode, res.Body)
	}

	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, errors.NewSearchQueryFailedError(index, fmt.Errorf("decode response: %w", err))
	}
	if resp.TimedOut {
		return nil, errors.NewSearchTimeoutError(index)
	}

	rows, err := toRows(&resp)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(index, err)
	}
	aggs, err := decodeAggregations(resp.Aggregations)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(index, err)
	}

	output := &Output{
		Rows:         rows,
		RowCount:     len(rows),
		Aggregations: aggs,
		TotalHits:    resp.Hits.Total.Value,
		Took:         resp.Took,
	}
	if err := h.cache.Set(ctx, key, output); err != nil {
		h.logger.Warn("failed to cache result", map[string]interface{}{"error": err})
	}
	return output, nil
}

func (h *Handler) responseError(index string, status int, body io.Reader) error {
	var e errorResponse
	_ = json.NewDecoder(body).Decode(&e)

	h.logger.Error("search request failed", map[string]interface{}{
		"index":  index,
		"status": status,
		"type":   e.Error.Type,
		"reason": e.Error.Reason,
	})

	if status == http.StatusNotFound || e.Error.Type == "index_not_found_exception" {
		return errors.NewIndexNotFoundError(index)
	}
	reason := e.Error.Reason
	if reason == "" {
		reason = http.StatusText(status)
	}
	return errors.NewSearchQueryFailedError(index, fmt.Errorf("%d %s", status, reason))
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
