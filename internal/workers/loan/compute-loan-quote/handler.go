// internal/workers/loan/compute-loan-quote/handler.go
package computeloanquote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	commonerrors "xtenda-workers/internal/common/errors"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/metrics"
	"xtenda-workers/internal/repayment"
	"xtenda-workers/internal/schedule"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "compute-loan-quote"
)

// ScheduleLoader supplies the current repayment table.
type ScheduleLoader interface {
	Load(ctx context.Context) (repayment.ScheduleTable, error)
}

type Handler struct {
	config   *Config
	schedule ScheduleLoader
	errors   *commonerrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, schedule ScheduleLoader, log logger.Logger) *Handler {
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
	if math.IsNaN(input.Amount) || math.IsInf(input.Amount, 0) {
		return nil, commonerrors.NewInvalidAmountError(fmt.Sprintf("amount %v is not a number", input.Amount))
	}
	if !repayment.IsSupportedTenure(input.TenureMonths, h.config.SupportedTenures) {
		metrics.QuotesComputed.WithLabelValues("worker", "invalid_tenure").Inc()
		return nil, commonerrors.NewInvalidTenureError(input.TenureMonths, h.config.SupportedTenures)
	}

	table, err := h.schedule.Load(ctx)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleInvalid) {
			return nil, commonerrors.NewScheduleValidationFailedError(err.Error())
		}
		return nil, commonerrors.NewScheduleUnavailableError(err)
	}

	quote := repayment.ComputeLoanQuote(table, input.Amount, input.TenureMonths)
	if !quote.Finite() {
		metrics.QuotesComputed.WithLabelValues("worker", "overflow").Inc()
		return nil, commonerrors.NewInvalidAmountError(fmt.Sprintf("amount %v cannot be quoted", input.Amount))
	}
	metrics.QuotesComputed.WithLabelValues("worker", metrics.QuoteOutcome(quote.MonthlyInstallment)).Inc()

	h.logger.Info("quote computed", map[string]interface{}{
		"amount":             quote.Amount,
		"tenureMonths":       quote.TenureMonths,
		"monthlyInstallment": quote.MonthlyInstallment,
	})

	return &Output{
		Amount:              quote.Amount,
		TenureMonths:        quote.TenureMonths,
		MonthlyInstallment:  quote.MonthlyInstallment,
		TotalRepayment:      quote.TotalRepayment,
		TotalCost:           quote.TotalCost,
		Quotable:            quote.Quotable(),
		WithinProductLimits: input.Amount >= h.config.MinAmount && input.Amount <= h.config.MaxAmount,
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
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
