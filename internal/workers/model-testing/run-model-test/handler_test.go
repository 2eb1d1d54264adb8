package runmodeltest

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modeltest-workers/internal/common/database"
	"modeltest-workers/internal/common/errors"
	"modeltest-workers/internal/common/logger"
	"modeltest-workers/internal/models"
	"modeltest-workers/internal/testrun"
)

type stubRunner struct {
	report *models.TestReport
	err    error
	calls  int
}

func (s *stubRunner) RunTestsOnModel(_ context.Context, _ string, _ bool) (*models.TestReport, error) {
	s.calls++
	return s.report, s.err
}

type recordingArchive struct {
	indexed []*models.TestReport
	err     error
}

func (a *recordingArchive) Index(_ context.Context, report *models.TestReport) error {
	if a.err != nil {
		return a.err
	}
	a.indexed = append(a.indexed, report)
	return nil
}

func sampleReport() *models.TestReport {
	return &models.TestReport{
		RunID: "run-1",
		BotID: "bot-1",
		NLU: &models.NLUEvaluation{
			IntentEvaluation: &models.IntentEvaluation{
				Accuracy:  0.9,
				Successes: []models.IntentMatch{{Text: "hello", Intent: "greet"}},
			},
		},
		Stories: &models.StoryEvaluation{
			ConversationAccuracy: &models.ConversationAccuracy{Accuracy: 0.75, Correct: 3, Total: 4},
			FailedStories:        [][]models.ConversationEvent{{{Event: "action", Name: "utter_greet"}}},
		},
		StartedAt:   time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
	}
}

func newTestHandler(t *testing.T, runner TestRunner, archive *recordingArchive) (*Handler, *testrun.RunLock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	lock := testrun.NewRunLock(redisClient, time.Minute, logger.NewNoOpLogger())

	return NewHandler(DefaultConfig(), runner, lock, archive, logger.NewNoOpLogger()), lock
}

func TestExecuteHappyPath(t *testing.T) {
	archive := &recordingArchive{}
	handler, _ := newTestHandler(t, &stubRunner{report: sampleReport()}, archive)

	output, err := handler.Execute(context.Background(), &Input{BotID: "bot-1"})
	require.NoError(t, err)

	assert.True(t, output.Success)
	assert.Equal(t, "run-1", output.RunID)
	assert.Equal(t, 0.9, output.IntentAccuracy)
	assert.Equal(t, 0.75, output.ConversationAccuracy)
	assert.Equal(t, 1, output.FailedStories)
	require.Len(t, archive.indexed, 1)
	assert.Equal(t, "run-1", archive.indexed[0].RunID)
}

func TestExecuteRequiresBotID(t *testing.T) {
	handler, _ := newTestHandler(t, &stubRunner{report: sampleReport()}, &recordingArchive{})

	_, err := handler.Execute(context.Background(), &Input{})
	require.Error(t, err)

	code, retries := jobError(err)
	assert.Equal(t, "VALIDATION_FAILED", code)
	assert.Zero(t, retries)
}

func TestExecuteRejectsConcurrentRunForSameBot(t *testing.T) {
	handler, lock := newTestHandler(t, &stubRunner{report: sampleReport()}, &recordingArchive{})

	ctx := context.Background()
	require.NoError(t, lock.Acquire(ctx, "bot-1", "other-run"))

	_, err := handler.Execute(ctx, &Input{BotID: "bot-1"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTestRunInProgress))
}

func TestExecuteReleasesLockAfterRun(t *testing.T) {
	handler, lock := newTestHandler(t, &stubRunner{report: sampleReport()}, &recordingArchive{})

	_, err := handler.Execute(context.Background(), &Input{BotID: "bot-1"})
	require.NoError(t, err)

	assert.NoError(t, lock.Acquire(context.Background(), "bot-1", "next-run"))
}

// deadlineRunner blocks until the job context expires, the shape of a run
// that overruns its job timeout.
type deadlineRunner struct{}

func (deadlineRunner) RunTestsOnModel(ctx context.Context, _ string, _ bool) (*models.TestReport, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExecuteReleasesLockWhenJobContextExpires(t *testing.T) {
	handler, lock := newTestHandler(t, deadlineRunner{}, &recordingArchive{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := handler.Execute(ctx, &Input{BotID: "bot-1"})
	require.Error(t, err)

	// release must not depend on the expired job context
	assert.NoError(t, lock.Acquire(context.Background(), "bot-1", "next-run"))
}

func TestExecutePropagatesRunnerError(t *testing.T) {
	runErr := errors.NewDataInsufficientError("botId: bot-1")
	handler, lock := newTestHandler(t, &stubRunner{err: runErr}, &recordingArchive{})

	_, err := handler.Execute(context.Background(), &Input{BotID: "bot-1"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataInsufficient))

	// the lock must not stay held after a failed run
	assert.NoError(t, lock.Acquire(context.Background(), "bot-1", "next-run"))
}

func TestExecuteRejectsInvalidReport(t *testing.T) {
	broken := sampleReport()
	broken.RunID = ""
	handler, _ := newTestHandler(t, &stubRunner{report: broken}, &recordingArchive{})

	_, err := handler.Execute(context.Background(), &Input{BotID: "bot-1"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportInvalid))
}

func TestExecuteArchiveFailureIsRetryable(t *testing.T) {
	archive := &recordingArchive{err: context.DeadlineExceeded}
	handler, _ := newTestHandler(t, &stubRunner{report: sampleReport()}, archive)

	_, err := handler.Execute(context.Background(), &Input{BotID: "bot-1"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportIndexFailed))

	_, retries := jobError(err)
	assert.Equal(t, int32(3), retries)
}

func TestValidateReport(t *testing.T) {
	assert.NoError(t, validateReport(sampleReport()))

	broken := sampleReport()
	broken.BotID = ""
	assert.Error(t, validateReport(broken))
}
