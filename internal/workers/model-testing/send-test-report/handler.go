package sendtestreport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"modeltest-workers/internal/common/errors"
	"modeltest-workers/internal/common/logger"
)

const TaskType = "send-test-report"

type Handler struct {
	config *Config
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

func NewHandler(config *Config, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		email:  email,
		sms:    sms,
		logger: log.With(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		code := "NOTIFICATION_SEND_FAILED"
		if errors.HasCode(err, "VALIDATION_FAILED") {
			code = "VALIDATION_FAILED"
		}
		h.failJob(client, job, code, err.Error())
		return err
	}

	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.BotID == "" || input.RunID == "" {
		return nil, &errors.StandardError{
			Code:      "VALIDATION_FAILED",
			Message:   "botId and runId are required",
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}

	subject, body := h.renderReport(input)
	output := &Output{SentAt: time.Now().UTC()}

	if h.config.EmailEnabled && len(input.Recipients) > 0 {
		sent, err := h.sendEmails(ctx, input.Recipients, subject, body)
		output.EmailsSent = sent
		if err != nil {
			return nil, errors.NewNotificationFailedError("email", err)
		}
	}

	if h.config.SMSEnabled && len(input.PhoneNumbers) > 0 {
		sent, err := h.sendSMS(ctx, input.PhoneNumbers, subject)
		output.SMSSent = sent
		if err != nil {
			return nil, errors.NewNotificationFailedError("sms", err)
		}
	}

	output.Success = true
	h.logger.Info("test report delivered", map[string]interface{}{
		"botId":      input.BotID,
		"runId":      input.RunID,
		"emailsSent": output.EmailsSent,
		"smsSent":    output.SMSSent,
	})
	return output, nil
}

func (h *Handler) renderReport(input *Input) (string, string) {
	subject := fmt.Sprintf("Model test report for bot %s", input.BotID)

	var body strings.Builder
	fmt.Fprintf(&body, "Test run %s finished.\n\n", input.RunID)
	fmt.Fprintf(&body, "Intent accuracy: %.2f%%\n", input.IntentAccuracy*100)
	fmt.Fprintf(&body, "Conversation accuracy: %.2f%%\n", input.ConversationAccuracy*100)
	fmt.Fprintf(&body, "Failed stories: %d\n", input.FailedStories)
	if input.ReportIndex != "" {
		fmt.Fprintf(&body, "\nThe full report is archived in the %q index under run id %s.\n", input.ReportIndex, input.RunID)
	}
	return subject, body.String()
}

func (h *Handler) sendEmails(ctx context.Context, recipients []string, subject, body string) (int, error) {
	sent := 0
	for _, recipient := range recipients {
		_, err := h.email.SendEmail(ctx, &ses.SendEmailInput{
			Source:      aws.String(h.config.FromAddress),
			Destination: &sestypes.Destination{ToAddresses: []string{recipient}},
			Message: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(body)},
				},
			},
		})
		if err != nil {
			return sent, fmt.Errorf("send to %s: %w", recipient, err)
		}
		sent++
	}
	return sent, nil
}

func (h *Handler) sendSMS(ctx context.Context, phoneNumbers []string, message string) (int, error) {
	sent := 0
	for _, number := range phoneNumbers {
		_, err := h.sms.Publish(ctx, &sns.PublishInput{
			PhoneNumber: aws.String(number),
			Message:     aws.String(message),
		})
		if err != nil {
			return sent, fmt.Errorf("publish to %s: %w", number, err)
		}
		sent++
	}
	return sent, nil
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
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

// Execute exposes the core path for tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
