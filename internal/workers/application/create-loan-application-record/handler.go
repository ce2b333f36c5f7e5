// internal/workers/application/create-loan-application-record/handler.go
package createloanapplicationrecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"xtenda-workers/internal/applications"
	"xtenda-workers/internal/common/database"
	commonerrors "xtenda-workers/internal/common/errors"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/metrics"
	"xtenda-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "create-loan-application-record"
)

type DocumentIndexer interface {
	Index(ctx context.Context, doc applications.Document) error
}

type StatusWriter interface {
	Put(ctx context.Context, v applications.StatusView) error
}

type Handler struct {
	config  *Config
	store   *applications.Store
	indexer DocumentIndexer
	cache   StatusWriter
	errors  *commonerrors.ErrorHandler
	logger  logger.Logger
	now     func() time.Time
	newID   func() string
}

func NewHandler(config *Config, store *applications.Store, indexer DocumentIndexer, cache StatusWriter, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		store:   store,
		indexer: indexer,
		cache:   cache,
		errors:  commonerrors.NewErrorHandler(l),
		logger:  l,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
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
	if validation.DigitCount(input.Application.NRC) < validation.MinNRCDigits {
		return nil, commonerrors.NewApplicationValidationFailedError("application.nrc: Invalid NRC format (too short).")
	}
	nrc := applications.NormalizeNRC(input.Application.NRC)

	if h.config.RejectDuplicates {
		open, err := h.store.HasOpenApplication(ctx, nrc)
		if err != nil {
			return nil, commonerrors.NewQueryExecutionFailedError("duplicate_check", err)
		}
		if open {
			return nil, commonerrors.NewDuplicateApplicationError(nrc)
		}
	}

	now := h.now()
	rec := &applications.Record{
		ID:          h.newID(),
		Application: input.Application,
		Summary:     input.LoanDetails,
		Status:      applications.StatusNew,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	rec.Application.NRC = nrc

	details := database.AuditDetails(map[string]interface{}{
		"nrc":            nrc,
		"amount":         rec.Summary.Amount,
		"tenureMonths":   rec.Summary.TenureMonths,
		"monthlyPayment": rec.Summary.MonthlyPayment,
	})

	err := database.WithTx(ctx, h.store.DB(), func(tx *sql.Tx) error {
		if err := h.store.Insert(ctx, tx, rec); err != nil {
			return err
		}
		return database.InsertAudit(ctx, tx, "application_submitted", "loan_application", rec.ID, details, now)
	})
	if err != nil {
		return nil, commonerrors.NewDatabaseInsertFailedError(err)
	}

	metrics.ApplicationStatusChanges.WithLabelValues(string(rec.Status)).Inc()

	// Postgres is the source of truth; search and cache catch up on the next
	// status change or lookup.
	indexed := true
	if err := h.indexer.Index(ctx, applications.DocumentFrom(rec)); err != nil {
		indexed = false
		h.logger.Warn("failed to index application", map[string]interface{}{
			"applicationId": rec.ID,
			"error":         err.Error(),
		})
	}
	if err := h.cache.Put(ctx, rec.View()); err != nil {
		h.logger.Warn("failed to cache application status", map[string]interface{}{
			"applicationId": rec.ID,
			"error":         err.Error(),
		})
	}

	h.logger.Info("application recorded", map[string]interface{}{
		"applicationId": rec.ID,
		"amount":        rec.Summary.Amount,
		"tenureMonths":  rec.Summary.TenureMonths,
	})

	return &Output{
		ApplicationID: rec.ID,
		NRC:           nrc,
		Status:        rec.Status,
		StatusTitle:   applications.StatusDisplay(rec.Status).Title,
		SubmittedAt:   now.Format(time.RFC3339),
		Indexed:       indexed,
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
