package sendtestreport

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type Input struct {
	BotID                string   `json:"botId"`
	RunID                string   `json:"runId"`
	Recipients           []string `json:"recipients,omitempty"`
	PhoneNumbers         []string `json:"phoneNumbers,omitempty"`
	IntentAccuracy       float64  `json:"intentAccuracy"`
	ConversationAccuracy float64  `json:"conversationAccuracy"`
	FailedStories        int      `json:"failedStories"`
	ReportIndex          string   `json:"reportIndex,omitempty"`
}

type Output struct {
	Success    bool      `json:"success"`
	EmailsSent int       `json:"emailsSent"`
	SMSSent    int       `json:"smsSent"`
	SentAt     time.Time `json:"sentAt"`
}

// EmailSender and SMSSender wrap the AWS clients so tests can substitute
// recorders.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}
