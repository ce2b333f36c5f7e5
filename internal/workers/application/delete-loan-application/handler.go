// internal/workers/application/delete-loan-application/handler.go
package deleteloanapplication

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
	TaskType = "delete-loan-application"
)

type DocumentRemover interface {
	Delete(ctx context.Context, id string) error
}

type StatusInvalidator interface {
	Forget(ctx context.Context, id, nrc string) error
}

type Handler struct {
	config  *Config
	store   *applications.Store
	indexer DocumentRemover
	cache   StatusInvalidator
	errors  *commonerrors.ErrorHandler
	logger  logger.Logger
	now     func() time.Time
}

func NewHandler(config *Config, store *applications.Store, indexer DocumentRemover, cache StatusInvalidator, log logger.Logger) *Handler {
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
	if strings.TrimSpace(input.DeletedBy) == "" {
		return nil, commonerrors.NewApplicationValidationFailedError("deletedBy is required")
	}

	rec, err := h.store.Get(ctx, input.ApplicationID)
	if errors.Is(err, applications.ErrNotFound) {
		return nil, commonerrors.NewApplicationNotFoundError(input.ApplicationID)
	}
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("get_application", err)
	}

	now := h.now()
	details, _ := json.Marshal(map[string]interface{}{
		"deletedBy": input.DeletedBy,
		"status":    rec.Status,
		"nrc":       rec.Application.NRC,
	})

	err = database.WithTx(ctx, h.store.DB(), func(tx *sql.Tx) error {
		if err := h.store.Delete(ctx, tx, rec.ID); err != nil {
			return err
		}
		return database.InsertAudit(ctx, tx, "application_deleted", "loan_application", rec.ID, details, now)
	})
	if errors.Is(err, applications.ErrNotFound) {
		return nil, commonerrors.NewApplicationNotFoundError(rec.ID)
	}
	if err != nil {
		return nil, commonerrors.NewDatabaseUpdateFailedError(err)
	}

	if err := h.indexer.Delete(ctx, rec.ID); err != nil {
		h.logger.Warn("failed to remove application from search index", map[string]interface{}{
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

	h.logger.Info("application deleted", map[string]interface{}{
		"applicationId": rec.ID,
		"deletedBy":     input.DeletedBy,
	})

	return &Output{
		ApplicationID: rec.ID,
		Deleted:       true,
		DeletedAt:     now.Format(time.RFC3339),
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
