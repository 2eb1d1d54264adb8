package sendtestreport

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modeltest-workers/internal/common/errors"
	"modeltest-workers/internal/common/logger"
)

type recordingEmail struct {
	sent []*ses.SendEmailInput
	err  error
}

func (r *recordingEmail) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, input)
	return &ses.SendEmailOutput{}, nil
}

type recordingSMS struct {
	published []*sns.PublishInput
	err       error
}

func (r *recordingSMS) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.published = append(r.published, input)
	return &sns.PublishOutput{}, nil
}

func sampleInput() *Input {
	return &Input{
		BotID:                "bot-1",
		RunID:                "run-1",
		Recipients:           []string{"owner@example.com"},
		IntentAccuracy:       0.9,
		ConversationAccuracy: 0.75,
		FailedStories:        1,
		ReportIndex:          "model-test-reports",
	}
}

func TestExecuteSendsEmailReport(t *testing.T) {
	email := &recordingEmail{}
	handler := NewHandler(DefaultConfig(), email, &recordingSMS{}, logger.NewNoOpLogger())

	output, err := handler.Execute(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.True(t, output.Success)
	assert.Equal(t, 1, output.EmailsSent)
	assert.Zero(t, output.SMSSent)

	require.Len(t, email.sent, 1)
	message := email.sent[0]
	assert.Equal(t, "noreply@example.com", *message.Source)
	assert.Equal(t, []string{"owner@example.com"}, message.Destination.ToAddresses)
	assert.Contains(t, *message.Message.Subject.Data, "bot-1")
	assert.Contains(t, *message.Message.Body.Text.Data, "run-1")
	assert.Contains(t, *message.Message.Body.Text.Data, "90.00%")
	assert.Contains(t, *message.Message.Body.Text.Data, "Failed stories: 1")
}

func TestExecuteSendsSMSWhenEnabled(t *testing.T) {
	config := DefaultConfig()
	config.SMSEnabled = true
	sms := &recordingSMS{}
	handler := NewHandler(config, &recordingEmail{}, sms, logger.NewNoOpLogger())

	input := sampleInput()
	input.PhoneNumbers = []string{"+15550100"}

	output, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 1, output.SMSSent)
	require.Len(t, sms.published, 1)
	assert.Equal(t, "+15550100", *sms.published[0].PhoneNumber)
}

func TestExecuteSkipsSMSByDefault(t *testing.T) {
	sms := &recordingSMS{}
	handler := NewHandler(DefaultConfig(), &recordingEmail{}, sms, logger.NewNoOpLogger())

	input := sampleInput()
	input.PhoneNumbers = []string{"+15550100"}

	output, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Zero(t, output.SMSSent)
	assert.Empty(t, sms.published)
}

func TestExecuteRequiresBotAndRun(t *testing.T) {
	handler := NewHandler(DefaultConfig(), &recordingEmail{}, &recordingSMS{}, logger.NewNoOpLogger())

	_, err := handler.Execute(context.Background(), &Input{BotID: "bot-1"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, "VALIDATION_FAILED"))
}

func TestExecuteWrapsDeliveryFailure(t *testing.T) {
	email := &recordingEmail{err: fmt.Errorf("ses throttled")}
	handler := NewHandler(DefaultConfig(), email, &recordingSMS{}, logger.NewNoOpLogger())

	_, err := handler.Execute(context.Background(), sampleInput())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotificationFailed))
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	config.FromAddress = ""
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Timeout = 0
	assert.Error(t, config.Validate())
}
