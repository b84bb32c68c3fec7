package querymongodb

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"chatdb-workers/internal/common/cache"
	"chatdb-workers/internal/common/errors"
	"chatdb-workers/internal/common/logger"
	"chatdb-workers/internal/common/metrics"
	"chatdb-workers/internal/common/validation"
	"chatdb-workers/internal/models"
)

const (
	TaskType = "query-mongodb"
)

var schema = validation.MustCompile(TaskType, inputSchema)

// Aggregator runs an aggregation pipeline; *database.MongoClient implements it.
type Aggregator interface {
	Aggregate(ctx context.Context, collection string, pipeline interface{}) ([]bson.M, error)
}

type Handler struct {
	config *Config
	store  Aggregator
	cache  *cache.ResultCache
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, store Aggregator, cache *cache.ResultCache, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
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

	input, err := parseInput(job.Variables)
	if err == nil {
		var output *Output
		if output, err = h.execute(ctx, input); err == nil {
			h.completeJob(client, job, output)
			done("")
			return
		}
	}
	done(h.errors.HandleJobError(ctx, client, job, err).Code)
}

func parseInput(variables string) (*Input, error) {
	if res := schema.ValidateJSON(variables); !res.Valid {
		return nil, errors.NewInvalidInputError(res.Err().Error())
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Collection == "" {
		return nil, errors.NewInvalidInputError("collection is required")
	}
	if len(input.Pipeline) == 0 {
		return nil, errors.NewInvalidInputError("pipeline must have at least one stage")
	}

	// one extra document tells a full page from a truncated one
	pipeline := append(models.Pipeline{}, input.Pipeline...)
	pipeline = append(pipeline, models.Stage{Kind: models.StageLimit, Limit: int64(h.config.MaxRows) + 1})

	rendered, err := pipeline.ExtJSON()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("render pipeline: %v", err))
	}
	key, err := h.cache.Key(TaskType, input.Collection, string(rendered))
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
	docs, err := h.store.Aggregate(ctx, input.Collection, pipeline.Mongo())
	if err != nil {
		return nil, h.mapError(ctx, input, err)
	}

	truncated := len(docs) > h.config.MaxRows
	if truncated {
		docs = docs[:h.config.MaxRows]
	}
	documents, err := toJSONDocuments(docs)
	if err != nil {
		return nil, errors.NewMongoDBQueryFailedError(input.Collection, err)
	}

	output := &Output{
		Documents:          documents,
		DocumentCount:      len(documents),
		Truncated:          truncated,
		QueryExecutionTime: time.Since(start).Milliseconds(),
	}
	if err := h.cache.Set(ctx, key, output); err != nil {
		h.logger.Warn("failed to cache result", map[string]interface{}{"error": err})
	}
	return output, nil
}

func (h *Handler) mapError(ctx context.Context, input *Input, err error) error {
	h.logger.Error("aggregation failed", map[string]interface{}{
		"collection": input.Collection,
		"error":      err,
	})
	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.NewQueryTimeoutError(input.Intent)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return errors.NewMongoDBConnectionFailedError(err)
	default:
		return errors.NewMongoDBQueryFailedError(input.Collection, err)
	}
}

// toJSONDocuments converts BSON results to plain JSON values using relaxed
// extended JSON, so ObjectIDs and dates keep a readable form.
func toJSONDocuments(docs []bson.M) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		raw, err := bson.MarshalExtJSON(d, false, false)
		if err != nil {
			return nil, err
		}
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
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
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
