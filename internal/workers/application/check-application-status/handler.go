// internal/workers/application/check-application-status/handler.go
package checkapplicationstatus

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"xtenda-workers/internal/applications"
	"xtenda-workers/internal/common/database"
	commonerrors "xtenda-workers/internal/common/errors"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/metrics"
	"xtenda-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "check-application-status"
)

type Handler struct {
	config *Config
	store  *applications.Store
	cache  *applications.StatusCache
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, store *applications.Store, cache *applications.StatusCache, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		cache:  cache,
		errors: commonerrors.NewErrorHandler(l),
		logger: l,
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
	id := strings.TrimSpace(input.ApplicationID)
	if id == "" {
		if validation.DigitCount(input.NRC) < validation.MinNRCDigits {
			return nil, commonerrors.NewApplicationValidationFailedError("nrc: Invalid NRC format (too short).")
		}
	}

	if view, ok := h.fromCache(ctx, id, input.NRC); ok {
		return toOutput(view, SourceCache), nil
	}

	var (
		rec *applications.Record
		err error
	)
	if id != "" {
		rec, err = h.store.Get(ctx, id)
	} else {
		rec, err = h.store.LatestByNRC(ctx, input.NRC)
	}
	if errors.Is(err, applications.ErrNotFound) {
		h.logger.Info("no application found", map[string]interface{}{
			"applicationId": id,
		})
		return &Output{Found: false}, nil
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, commonerrors.NewQueryTimeoutError("status_lookup")
		}
		return nil, commonerrors.NewQueryExecutionFailedError("status_lookup", err)
	}

	view := rec.View()
	if err := h.cache.Put(ctx, view); err != nil {
		h.logger.Warn("failed to cache application status", map[string]interface{}{
			"applicationId": rec.ID,
			"error":         err.Error(),
		})
	}
	return toOutput(&view, SourceDatabase), nil
}

// fromCache treats any cache failure as a miss; Postgres answers instead.
func (h *Handler) fromCache(ctx context.Context, id, nrc string) (*applications.StatusView, bool) {
	var (
		view *applications.StatusView
		err  error
	)
	if id != "" {
		view, err = h.cache.ByID(ctx, id)
	} else {
		view, err = h.cache.ByNRC(ctx, nrc)
	}
	if err == nil {
		return view, true
	}
	if !errors.Is(err, database.ErrCacheMiss) {
		h.logger.Warn("status cache read failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil, false
}

func toOutput(v *applications.StatusView, source string) *Output {
	return &Output{
		Found:          true,
		Source:         source,
		ApplicationID:  v.ID,
		Status:         v.Status,
		Title:          v.Title,
		Message:        v.Message,
		FullNames:      v.FullNames,
		Amount:         v.Amount,
		AmountDisplay:  applications.FormatKwacha(v.Amount),
		TenureMonths:   v.TenureMonths,
		MonthlyPayment: v.MonthlyPayment,
		MonthlyDisplay: applications.FormatKwacha(v.MonthlyPayment),
		SubmittedAt:    v.SubmittedAt.Format(time.RFC3339),
		UpdatedAt:      v.UpdatedAt.Format(time.RFC3339),
	}
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
