// internal/workers/application/validate-loan-application/handler.go
package validateloanapplication

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"xtenda-workers/internal/applications"
	commonerrors "xtenda-workers/internal/common/errors"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/metrics"
	"xtenda-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "validate-loan-application"
)

type Handler struct {
	config *Config
	schema map[string]interface{}
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		schema: documentSchema(config),
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

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	app := sanitize(input.Application)
	doc := &Input{Application: app, LoanDetails: input.LoanDetails}

	result, err := validation.ValidateDocument(h.schema, doc)
	if err != nil {
		return nil, commonerrors.NewApplicationValidationFailedError(err.Error())
	}
	errs := result.Errors

	errs = validation.Required(errs, "application.fullNames", app.FullNames, "Full Name")
	errs = validation.NRC(errs, "application.nrc", app.NRC)
	errs = validation.Required(errs, "application.employeeNumber", app.EmployeeNumber, "Employee Number")
	errs = validation.Required(errs, "application.employer", app.Employer, "Employer")
	errs = validation.Phone(errs, "application.phone", app.Phone)
	errs = validation.Email(errs, "application.email", app.Email)
	errs = validation.Required(errs, "application.employmentAddress", app.EmploymentAddress, "Employment Address")

	errs = validation.Required(errs, "application.kinFullNames", app.KinFullNames, "Next of Kin Name")
	errs = validation.Required(errs, "application.kinNrc", app.KinNRC, "Next of Kin NRC")
	errs = validation.Required(errs, "application.kinRelationship", app.KinRelationship, "Relationship")
	errs = validation.Required(errs, "application.kinPhone", app.KinPhone, "Next of Kin Phone")
	errs = validation.Required(errs, "application.kinResidentialAddress", app.KinResidentialAddress, "Residential Address")

	errs = validation.Required(errs, "application.bankName", app.BankName, "Bank Name")
	errs = validation.Required(errs, "application.branchName", app.BranchName, "Branch Name")
	errs = validation.Required(errs, "application.accountNumber", app.AccountNumber, "Account Number")

	errs = validation.Required(errs, "application.latestPayslip", app.LatestPayslip, "Payslip")
	errs = validation.Required(errs, "application.signature", app.Signature, "Signature")

	h.logger.Info("validation completed", map[string]interface{}{
		"isValid":    len(errs) == 0,
		"errorCount": len(errs),
	})

	if len(errs) > 0 {
		return nil, commonerrors.NewApplicationValidationFailedError(
			fmt.Sprintf("%d validation errors: %s", len(errs), validation.Join(errs)),
		).WithMetadata("validationErrors", errs)
	}

	quote := input.LoanDetails.Quote()
	return &Output{
		IsValid:          true,
		Application:      app,
		LoanDetails:      input.LoanDetails,
		TotalRepayment:   quote.TotalRepayment,
		TotalCost:        quote.TotalCost,
		ValidationErrors: []validation.ValidationError{},
	}, nil
}

// sanitize trims free-text fields and puts the NRC in its canonical layout.
// Document references are passed through untouched.
func sanitize(app applications.LoanApplication) applications.LoanApplication {
	for _, f := range []*string{
		&app.FullNames, &app.EmployeeNumber, &app.Employer, &app.Phone, &app.Email,
		&app.EmploymentAddress, &app.EmploymentTerms, &app.LoanPurpose,
		&app.KinFullNames, &app.KinNRC, &app.KinRelationship, &app.KinPhone, &app.KinResidentialAddress,
		&app.BankName, &app.BranchName, &app.AccountNumber, &app.DateOfApplication,
	} {
		*f = strings.Join(strings.Fields(*f), " ")
	}
	if validation.DigitCount(app.NRC) >= validation.MinNRCDigits {
		app.NRC = applications.NormalizeNRC(app.NRC)
	}
	return app
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
