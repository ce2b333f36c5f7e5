// internal/workers/communication/send-status-notification/handler.go
package sendstatusnotification

import (
	"context"
	"encoding/json"
	"strings"

	"xtenda-workers/internal/applications"
	awsclient "xtenda-workers/internal/common/aws"
	commonerrors "xtenda-workers/internal/common/errors"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-status-notification"
)

type Handler struct {
	config *Config
	ses    awsclient.SESService
	sns    awsclient.SNSService
	errors *commonerrors.ErrorHandler
	logger logger.Logger
}

// NewHandler accepts nil clients for channels that are switched off.
func NewHandler(config *Config, ses awsclient.SESService, sns awsclient.SNSService, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		ses:    ses,
		sns:    sns,
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
	status, ok := applications.ParseStatus(input.Status)
	if !ok {
		return nil, commonerrors.NewApplicationValidationFailedError("unknown status: " + input.Status)
	}
	if input.Notify != nil && !*input.Notify {
		return &Output{Skipped: "notification not requested"}, nil
	}

	d := applications.StatusDisplay(status)
	out := &Output{}

	if h.config.EmailEnabled && h.ses != nil && strings.TrimSpace(input.Email) != "" {
		msg := buildEmail(input, d, h.config.SupportPhone)
		res, err := h.ses.SendEmail(ctx, awsclient.EmailInput(h.config.FromEmail, input.Email, msg.Subject, msg.Text, msg.HTML))
		if err != nil {
			return nil, commonerrors.NewNotificationSendFailedError("email", err)
		}
		out.EmailSent = true
		out.EmailMessageID = aws.ToString(res.MessageId)
	}

	if h.config.smsFor(string(status)) && h.sns != nil {
		if err := h.sendSMS(ctx, input, d, out); err != nil {
			if !out.EmailSent {
				return nil, err
			}
			// A retry would send the email again.
			h.logger.Warn("sms failed after email was sent", map[string]interface{}{
				"applicationId": input.ApplicationID,
				"error":         err.Error(),
			})
		}
	}

	if !out.EmailSent && !out.SMSSent {
		out.Skipped = "no enabled channel for applicant contact details"
	}

	h.logger.Info("status notification processed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"status":        status,
		"emailSent":     out.EmailSent,
		"smsSent":       out.SMSSent,
	})
	return out, nil
}

func (h *Handler) sendSMS(ctx context.Context, input *Input, d applications.Display, out *Output) error {
	phone, ok := toE164(input.Phone, h.config.DefaultCountryCode)
	if !ok {
		h.logger.Warn("skipping sms for unusable phone number", map[string]interface{}{
			"applicationId": input.ApplicationID,
		})
		return nil
	}
	res, err := h.sns.Publish(ctx, awsclient.SMSInput(phone, buildSMS(input, d, h.config.SupportPhone), h.config.SMSSenderID))
	if err != nil {
		return commonerrors.NewNotificationSendFailedError("sms", err)
	}
	out.SMSSent = true
	out.SMSMessageID = aws.ToString(res.MessageId)
	return nil
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
