package translatequery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"chatdb-workers/internal/common/errors"
	"chatdb-workers/internal/common/logger"
	"chatdb-workers/internal/common/metrics"
	"chatdb-workers/internal/common/observability"
	"chatdb-workers/internal/common/validation"
	"chatdb-workers/internal/models"
	"chatdb-workers/internal/translator"
)

const (
	TaskType = "translate-query"
)

var schema = validation.MustCompile(TaskType, inputSchema)

type Handler struct {
	config     *Config
	translator *translator.Translator
	obs        *observability.Observability
	errors     *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, tr *translator.Translator, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		translator: tr,
		obs:        obs,
		errors:     errors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	start := time.Now()
	done := metrics.JobStarted(TaskType)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int64("jobKey", job.Key))
	defer span.End()

	output, err := h.parseAndExecute(ctx, job.Variables)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		bpmnErr := h.errors.HandleJobError(ctx, client, job, err)
		done(bpmnErr.Code)
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
		return
	}

	span.SetAttributes(
		attribute.String("intent", string(output.Intent)),
		attribute.String("backend", string(output.Backend)),
	)
	h.completeJob(client, job, output)
	done("")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

func (h *Handler) parseAndExecute(ctx context.Context, variables string) (*Output, error) {
	if res := schema.ValidateJSON(variables); !res.Valid {
		return nil, errors.NewInvalidInputError(res.Err().Error())
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return h.execute(ctx, &input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternalError(err)
	}

	backend := h.config.DefaultBackend
	if input.Backend != "" {
		b, err := models.ParseBackend(input.Backend)
		if err != nil {
			return nil, h.translationFailed(fmt.Errorf("%w: %v", translator.ErrUnsupportedBackend, err))
		}
		backend = b
	}
	target := input.Target
	if target == "" {
		target = h.config.DefaultTarget
	}

	tr, err := h.translator.Translate(input.Question, backend, target)
	if err != nil {
		return nil, h.translationFailed(err)
	}
	metrics.TranslationsTotal.WithLabelValues(string(tr.Intent), string(backend)).Inc()

	h.logger.Debug("question translated", map[string]interface{}{
		"intent":     tr.Intent,
		"backend":    backend,
		"normalized": tr.Normalized,
	})

	return &Output{
		TranslationID: uuid.NewString(),
		Question:      input.Question,
		Intent:        tr.Intent,
		Backend:       backend,
		Target:        target,
		Parameters:    tr.Parameters,
		SQL:           tr.Query.SQL,
		Pipeline:      tr.Query.Pipeline,
		Search:        tr.Query.Search,
	}, nil
}

func (h *Handler) translationFailed(err error) error {
	stdErr := errors.FromTranslationError(err)
	metrics.TranslationFailures.WithLabelValues(string(stdErr.Code)).Inc()
	return stdErr
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
