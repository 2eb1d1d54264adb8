// internal/testrun/runner.go
package testrun

import (
	"context"
	goerrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"modeltest-workers/internal/common/errors"
	"modeltest-workers/internal/common/logger"
	"modeltest-workers/internal/evaluation"
	"modeltest-workers/internal/model"
	"modeltest-workers/internal/models"
	"modeltest-workers/internal/testgen"
)

// Runner sequences one full test run: resolve the latest model, generate
// the test corpora, run both evaluators and assemble the report.
type Runner struct {
	Loader    model.Loader
	Generator *testgen.Generator
	NLU       *evaluation.NLUEvaluator
	Stories   *evaluation.StoryEvaluator
	WorkDir   string
	Logger    logger.Logger
}

func NewRunner(loader model.Loader, generator *testgen.Generator, nlu *evaluation.NLUEvaluator, stories *evaluation.StoryEvaluator, workDir string, log logger.Logger) *Runner {
	return &Runner{
		Loader:    loader,
		Generator: generator,
		NLU:       nlu,
		Stories:   stories,
		WorkDir:   workDir,
		Logger:    log,
	}
}

// RunTestsOnModel runs the full pipeline for one bot. The bot's transient
// working directory is removed on every exit path. Coded errors (data
// insufficiency, store and model-server failures) surface with their code
// intact; anything else comes back as a single MODEL_TESTING_FAILED error.
func (r *Runner) RunTestsOnModel(ctx context.Context, botID string, runE2E bool) (*models.TestReport, error) {
	startedAt := time.Now().UTC()
	botHome := filepath.Join(r.WorkDir, botID)
	defer func() {
		if err := os.RemoveAll(botHome); err != nil {
			r.Logger.Warn("failed to clean working directory", map[string]interface{}{
				"bot_id": botID,
				"path":   botHome,
				"error":  err.Error(),
			})
		}
	}()

	nlu, stories, err := r.runPipeline(ctx, botID, runE2E)
	if err != nil {
		return nil, wrapRunError(botID, err)
	}

	return &models.TestReport{
		RunID:       uuid.New().String(),
		BotID:       botID,
		NLU:         nlu,
		Stories:     stories,
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
	}, nil
}

func (r *Runner) runPipeline(ctx context.Context, botID string, runE2E bool) (*models.NLUEvaluation, *models.StoryEvaluation, error) {
	modelPath, err := r.Loader.LatestModel(botID)
	if err != nil {
		return nil, nil, err
	}
	r.Logger.Info("starting test run", map[string]interface{}{
		"bot_id":     botID,
		"model_path": modelPath,
		"e2e":        runE2E,
	})

	nluPath, storiesPath, err := r.Generator.Create(ctx, botID, runE2E)
	if err != nil {
		return nil, nil, err
	}

	interpreter, agent, err := r.Loader.Load(ctx, modelPath)
	if err != nil {
		return nil, nil, err
	}

	messages, err := testgen.ReadNLUFile(nluPath)
	if err != nil {
		return nil, nil, err
	}
	storyScripts, _, err := testgen.ReadStoriesFile(storiesPath)
	if err != nil {
		return nil, nil, err
	}

	// the two evaluations share no state, so they run concurrently; report
	// ordering is fixed by the result struct, not by completion order
	var nluResult *models.NLUEvaluation
	var storyResult *models.StoryEvaluation

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		result, err := r.NLU.RunTestOnNLU(groupCtx, interpreter, messages)
		if err != nil {
			return err
		}
		nluResult = result
		return nil
	})
	group.Go(func() error {
		result, err := r.Stories.RunTestOnStories(groupCtx, agent, interpreter, storyScripts, runE2E)
		if err != nil {
			return err
		}
		storyResult = result
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	return nluResult, storyResult, nil
}

// wrapRunError maps pipeline failures onto the error contract of a test
// run. Model-server sentinels become their coded equivalents so transient
// failures keep their retry budget; errors already carrying a code pass
// through verbatim.
func wrapRunError(botID string, err error) error {
	if goerrors.Is(err, model.ErrModelNotFound) {
		return errors.NewModelNotFoundError(botID)
	}
	if goerrors.Is(err, model.ErrModelServerTimeout) {
		return errors.NewModelServerTimeoutError()
	}
	if goerrors.Is(err, model.ErrModelServerFailed) {
		return errors.NewModelServerFailedError(err)
	}
	var stdErr *errors.StandardError
	if goerrors.As(err, &stdErr) {
		return err
	}
	return errors.NewModelTestingFailedError(err)
}
