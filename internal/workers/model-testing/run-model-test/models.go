package runmodeltest

import (
	"context"
	"time"

	"modeltest-workers/internal/models"
)

type Input struct {
	BotID  string `json:"botId"`
	RunE2E bool   `json:"runE2e,omitempty"`
}

type Output struct {
	Success              bool      `json:"success"`
	RunID                string    `json:"runId"`
	BotID                string    `json:"botId"`
	IntentAccuracy       float64   `json:"intentAccuracy"`
	ConversationAccuracy float64   `json:"conversationAccuracy"`
	FailedStories        int       `json:"failedStories"`
	ReportIndex          string    `json:"reportIndex"`
	CompletedAt          time.Time `json:"completedAt"`
}

// TestRunner is the orchestration boundary the handler drives. The
// production implementation is testrun.Runner.
type TestRunner interface {
	RunTestsOnModel(ctx context.Context, botID string, runE2E bool) (*models.TestReport, error)
}
