// internal/workers/loan/update-repayment-schedule/handler.go
package updaterepaymentschedule

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	commonerrors "xtenda-workers/internal/common/errors"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/metrics"
	"xtenda-workers/internal/repayment"
	"xtenda-workers/internal/schedule"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-repayment-schedule"
)

type ScheduleSaver interface {
	Save(ctx context.Context, table repayment.ScheduleTable, updatedBy string) (time.Time, error)
	Tenures() []int
}

type Handler struct {
	config   *Config
	schedule ScheduleSaver
	errors   *commonerrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, schedule ScheduleSaver, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		schedule: schedule,
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
	if input.UpdatedBy == "" {
		return nil, commonerrors.NewScheduleValidationFailedError("updatedBy is required")
	}

	tenures := h.schedule.Tenures()
	if err := repayment.ValidateTable(input.Schedule, tenures); err != nil {
		return nil, tableError(err)
	}

	previewTenure := input.PreviewTenureMonths
	if previewTenure == 0 {
		previewTenure = h.config.PreviewTenure
	}
	if !repayment.IsSupportedTenure(previewTenure, tenures) {
		return nil, commonerrors.NewInvalidTenureError(previewTenure, tenures)
	}

	updatedAt, err := h.schedule.Save(ctx, input.Schedule, input.UpdatedBy)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleInvalid) {
			return nil, tableError(err)
		}
		return nil, commonerrors.NewScheduleUnavailableError(err)
	}

	sorted := input.Schedule.Sorted()
	preview := make([]PreviewRow, 0, len(sorted))
	for _, amount := range sorted.Amounts() {
		q := repayment.ComputeLoanQuote(sorted, amount, previewTenure)
		metrics.QuotesComputed.WithLabelValues("schedule_preview", metrics.QuoteOutcome(q.MonthlyInstallment)).Inc()
		preview = append(preview, PreviewRow{
			Amount:             amount,
			MonthlyInstallment: q.MonthlyInstallment,
			TotalRepayment:     q.TotalRepayment,
		})
	}

	var warnings []repayment.MonotonicityViolation
	for _, m := range input.Schedule.Tenures() {
		warnings = append(warnings, repayment.MonotonicityViolations(input.Schedule, m)...)
	}
	if len(warnings) > 0 {
		h.logger.Warn("schedule has decreasing installments", map[string]interface{}{
			"violations": len(warnings),
		})
	}

	return &Output{
		EntryCount:          len(input.Schedule),
		Tenures:             input.Schedule.Tenures(),
		UpdatedAt:           updatedAt.Format(time.RFC3339),
		PreviewTenureMonths: previewTenure,
		Preview:             preview,
		Warnings:            warnings,
	}, nil
}

func tableError(err error) error {
	stdErr := commonerrors.NewScheduleValidationFailedError(err.Error())
	var tableErr *repayment.TableError
	if errors.As(err, &tableErr) {
		stdErr.WithMetadata("problems", tableErr.Problems)
	}
	return stdErr
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
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
