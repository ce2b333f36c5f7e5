// internal/workers/application/update-application-status/handler.go
package updateapplicationstatus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"xtenda-workers/internal/applications"
	"xtenda-workers/internal/common/database"
	commonerrors "xtenda-workers/internal/common/errors"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-application-status"
)

type StatusIndexer interface {
	UpdateStatus(ctx context.Context, id string, status applications.Status, at time.Time) error
}

type StatusInvalidator interface {
	Forget(ctx context.Context, id, nrc string) error
}

type Handler struct {
	config  *Config
	store   *applications.Store
	indexer StatusIndexer
	cache   StatusInvalidator
	errors  *commonerrors.ErrorHandler
	logger  logger.Logger
	now     func() time.Time
}

func NewHandler(config *Config, store *applications.Store, indexer StatusIndexer, cache StatusInvalidator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		store:   store,
		indexer: indexer,
		cache:   cache,
		errors:  commonerrors.NewErrorHandler(l),
		logger:  l,
		now:     func() time.Time { return time.Now().UTC() },
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
	if strings.TrimSpace(input.ApplicationID) == "" {
		return nil, commonerrors.NewApplicationValidationFailedError("applicationId is required")
	}
	if strings.TrimSpace(input.ReviewedBy) == "" {
		return nil, commonerrors.NewApplicationValidationFailedError("reviewedBy is required")
	}
	to, ok := applications.ParseStatus(input.Status)
	if !ok {
		return nil, commonerrors.NewApplicationValidationFailedError("unknown status: " + input.Status)
	}

	rec, err := h.store.Get(ctx, input.ApplicationID)
	if errors.Is(err, applications.ErrNotFound) {
		return nil, commonerrors.NewApplicationNotFoundError(input.ApplicationID)
	}
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("get_application", err)
	}

	from := rec.Status
	if !applications.CanTransition(from, to) {
		return nil, commonerrors.NewInvalidStatusTransitionError(string(from), string(to))
	}

	now := h.now()
	details := database.AuditDetails(map[string]interface{}{
		"from":       from,
		"to":         to,
		"reviewedBy": input.ReviewedBy,
		"notes":      input.ReviewNotes,
	})

	err = database.WithTx(ctx, h.store.DB(), func(tx *sql.Tx) error {
		if err := h.store.UpdateStatus(ctx, tx, rec.ID, from, to, input.ReviewedBy, input.ReviewNotes, now); err != nil {
			return err
		}
		return database.InsertAudit(ctx, tx, "application_status_changed", "loan_application", rec.ID, details, now)
	})
	if errors.Is(err, applications.ErrStatusChanged) {
		return nil, commonerrors.NewInvalidStatusTransitionError(string(from), string(to)).
			WithMetadata("reason", "status changed by another reviewer")
	}
	if err != nil {
		return nil, commonerrors.NewDatabaseUpdateFailedError(err)
	}

	metrics.ApplicationStatusChanges.WithLabelValues(string(to)).Inc()

	if err := h.indexer.UpdateStatus(ctx, rec.ID, to, now); err != nil {
		h.logger.Warn("failed to update search index", map[string]interface{}{
			"applicationId": rec.ID,
			"error":         err.Error(),
		})
	}
	if err := h.cache.Forget(ctx, rec.ID, rec.Application.NRC); err != nil {
		h.logger.Warn("failed to invalidate status cache", map[string]interface{}{
			"applicationId": rec.ID,
			"error":         err.Error(),
		})
	}

	h.logger.Info("application status updated", map[string]interface{}{
		"applicationId": rec.ID,
		"from":          from,
		"to":            to,
		"reviewedBy":    input.ReviewedBy,
	})

	d := applications.StatusDisplay(to)
	return &Output{
		ApplicationID:  rec.ID,
		PreviousStatus: from,
		Status:         to,
		StatusTitle:    d.Title,
		StatusMessage:  d.Message,
		UpdatedAt:      now.Format(time.RFC3339),
		Notify:         h.config.NotifyApplicant,
		FullNames:      rec.Application.FullNames,
		Email:          rec.Application.Email,
		Phone:          rec.Application.Phone,
		Amount:         rec.Summary.Amount,
		TenureMonths:   rec.Summary.TenureMonths,
		MonthlyPayment: rec.Summary.MonthlyPayment,
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
