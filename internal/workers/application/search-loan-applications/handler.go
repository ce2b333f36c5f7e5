// internal/workers/application/search-loan-applications/handler.go
package searchloanapplications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"xtenda-workers/internal/applications"
	commonerrors "xtenda-workers/internal/common/errors"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "search-loan-applications"
)

type Searcher interface {
	Search(ctx context.Context, q applications.SearchQuery) (*applications.SearchResult, error)
	IndexName() string
}

type Handler struct {
	config   *Config
	searcher Searcher
	errors   *commonerrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, searcher Searcher, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		searcher: searcher,
		errors:   commonerrors.NewErrorHandler(l),
		logger:   l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, commonerrors.NewParseError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	q := applications.SearchQuery{
		Text: strings.TrimSpace(input.Query),
		From: input.From,
		Size: input.Size,
	}
	if input.Status != "" {
		st, ok := applications.ParseStatus(input.Status)
		if !ok {
			return nil, commonerrors.NewApplicationValidationFailedError("unknown status filter: " + input.Status)
		}
		q.Status = st
	}
	if q.From < 0 {
		q.From = 0
	}
	if q.Size <= 0 {
		q.Size = applications.DefaultSearchSize
	}
	if q.Size > applications.MaxSearchSize {
		q.Size = applications.MaxSearchSize
	}

	res, err := h.searcher.Search(ctx, q)
	switch {
	case errors.Is(err, applications.ErrIndexMissing):
		return nil, commonerrors.NewIndexNotFoundError(h.searcher.IndexName())
	case errors.Is(err, context.DeadlineExceeded):
		return nil, commonerrors.NewSearchTimeoutError(h.searcher.IndexName())
	case err != nil:
		return nil, commonerrors.NewSearchQueryFailedError(h.searcher.IndexName(), err)
	}

	h.logger.Info("search completed", map[string]interface{}{
		"total":    res.Total,
		"returned": len(res.Items),
		"status":   q.Status,
	})

	return &Output{
		Total:        res.Total,
		Applications: res.Items,
		TookMs:       res.Took,
		From:         q.From,
		Size:         q.Size,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, commonerrors.NewOutputEncodingError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
