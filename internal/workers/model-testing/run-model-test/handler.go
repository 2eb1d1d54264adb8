package runmodeltest

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"modeltest-workers/internal/common/errors"
	"modeltest-workers/internal/common/logger"
	"modeltest-workers/internal/common/metrics"
	"modeltest-workers/internal/models"
	"modeltest-workers/internal/store"
	"modeltest-workers/internal/testrun"
)

const TaskType = "run-model-test"

type Handler struct {
	config  *Config
	runner  TestRunner
	lock    *testrun.RunLock
	archive store.ReportArchive
	logger  logger.Logger
}

func NewHandler(config *Config, runner TestRunner, lock *testrun.RunLock, archive store.ReportArchive, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		runner:  runner,
		lock:    lock,
		archive: archive,
		logger:  log.With(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		code, retries := jobError(err)
		h.failJob(client, job, code, err.Error(), retries)
		return err
	}

	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.BotID == "" {
		return nil, &errors.StandardError{
			Code:      "VALIDATION_FAILED",
			Message:   "botId is required",
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}

	startedAt := time.Now()
	runID := fmt.Sprintf("%s-%d", input.BotID, startedAt.UnixNano())

	if err := h.lock.Acquire(ctx, input.BotID, runID); err != nil {
		return nil, err
	}
	// release on a fresh context: when the run fails by deadline the job
	// context is already expired and the lock would stick until TTL
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.lock.Release(releaseCtx, input.BotID)
	}()

	report, err := h.runner.RunTestsOnModel(ctx, input.BotID, input.RunE2E)
	if err != nil {
		metrics.TestRunsFailed.WithLabelValues(input.BotID, string(errorCode(err))).Inc()
		return nil, err
	}

	if err := validateReport(report); err != nil {
		metrics.TestRunsFailed.WithLabelValues(input.BotID, string(errors.ErrCodeReportInvalid)).Inc()
		return nil, errors.NewReportInvalidError(err.Error())
	}

	if err := h.archive.Index(ctx, report); err != nil {
		metrics.TestRunsFailed.WithLabelValues(input.BotID, string(errors.ErrCodeReportIndexFailed)).Inc()
		return nil, errors.NewReportIndexFailedError(err)
	}

	metrics.TestRunsCompleted.WithLabelValues(input.BotID).Inc()
	metrics.TestRunDuration.WithLabelValues(input.BotID).Observe(time.Since(startedAt).Seconds())
	h.recordEvaluationMetrics(input.BotID, report)

	output := &Output{
		Success:     true,
		RunID:       report.RunID,
		BotID:       report.BotID,
		ReportIndex: h.config.ReportIndex,
		CompletedAt: report.CompletedAt,
	}
	if report.NLU != nil && report.NLU.IntentEvaluation != nil {
		output.IntentAccuracy = report.NLU.IntentEvaluation.Accuracy
	}
	if report.Stories != nil {
		output.FailedStories = len(report.Stories.FailedStories)
		if report.Stories.ConversationAccuracy != nil {
			output.ConversationAccuracy = report.Stories.ConversationAccuracy.Accuracy
		}
	}

	h.logger.Info("test run finished", map[string]interface{}{
		"botId":                input.BotID,
		"runId":                report.RunID,
		"intentAccuracy":       output.IntentAccuracy,
		"conversationAccuracy": output.ConversationAccuracy,
	})
	return output, nil
}

func (h *Handler) recordEvaluationMetrics(botID string, report *models.TestReport) {
	if report.NLU != nil && report.NLU.IntentEvaluation != nil {
		evaluated := len(report.NLU.IntentEvaluation.Successes) + len(report.NLU.IntentEvaluation.Errors)
		metrics.MessagesEvaluated.WithLabelValues(botID).Add(float64(evaluated))
	}
	if report.Stories == nil {
		return
	}
	metrics.StoriesEvaluated.WithLabelValues(botID, "failed").Add(float64(len(report.Stories.FailedStories)))
	metrics.StoriesEvaluated.WithLabelValues(botID, "passed").Add(float64(len(report.Stories.SuccessfulStories)))
	if report.Stories.ConversationAccuracy != nil {
		metrics.StoriesEvaluated.WithLabelValues(botID, "warning").Add(float64(report.Stories.ConversationAccuracy.WithWarnings))
	}
}

// jobError maps a pipeline error onto a BPMN error code and retry count.
func jobError(err error) (string, int32) {
	code := errorCode(err)
	return string(code), int32(errors.GetRetryCount(code))
}

func errorCode(err error) errors.ErrorCode {
	var stdErr *errors.StandardError
	if goerrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return errors.ErrCodeModelTestingFailed
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
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
