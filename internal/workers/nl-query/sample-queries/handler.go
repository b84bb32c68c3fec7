package samplequeries

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"chatdb-workers/internal/common/errors"
	"chatdb-workers/internal/common/logger"
	"chatdb-workers/internal/common/metrics"
	"chatdb-workers/internal/common/validation"
	"chatdb-workers/internal/models"
	"chatdb-workers/internal/translator"
	"chatdb-workers/internal/translator/samples"
)

const (
	TaskType = "sample-queries"
)

var schema = validation.MustCompile(TaskType, inputSchema)

type Handler struct {
	config     *Config
	translator *translator.Translator
	errors     *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, tr *translator.Translator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		translator: tr,
		errors:     errors.NewErrorHandler(log),
		logger:     log,
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
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}
	if input.Count < 1 || input.Count > h.config.MaxCount {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("count must be between 1 and %d", h.config.MaxCount))
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternalError(err)
	}

	backend := h.config.DefaultBackend
	if input.Backend != "" {
		b, err := models.ParseBackend(input.Backend)
		if err != nil {
			return nil, errors.FromTranslationError(fmt.Errorf("%w: %v", translator.ErrUnsupportedBackend, err))
		}
		backend = b
	}
	target := input.Target
	if target == "" {
		target = h.config.DefaultTarget
	}
	if target == "" {
		return nil, errors.FromTranslationError(translator.ErrMissingTarget)
	}

	// Generator state is per job; the translator is shared.
	var opts []samples.Option
	if input.Seed != nil {
		opts = append(opts, samples.WithSeed(*input.Seed))
	}
	generated, err := samples.NewGenerator(h.translator, opts...).Generate(input.Count, backend, target)
	if err != nil {
		if stderrors.Is(err, samples.ErrEmptyVocabulary) {
			return nil, errors.NewInternalError(fmt.Errorf("vocabulary cannot produce samples: %w", err))
		}
		return nil, errors.FromTranslationError(err)
	}

	return &Output{Samples: generated, Count: len(generated)}, nil
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
