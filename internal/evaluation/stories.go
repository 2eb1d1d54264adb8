// internal/evaluation/stories.go
package evaluation

import (
	"context"
	"fmt"

	"modeltest-workers/internal/common/logger"
	"modeltest-workers/internal/model"
	"modeltest-workers/internal/models"
)

type storyOutcome int

const (
	storyPassed storyOutcome = iota
	storyFailed
	storyWarning
)

// StoryEvaluator replays conversation test scripts through a dialogue
// agent and scores the predicted actions.
type StoryEvaluator struct {
	// FallbackThreshold marks correct predictions whose confidence would
	// have triggered the fallback action. Stories containing such steps
	// finish with a warning instead of a pass.
	FallbackThreshold float64
	Logger            logger.Logger
}

func NewStoryEvaluator(fallbackThreshold float64, log logger.Logger) *StoryEvaluator {
	return &StoryEvaluator{FallbackThreshold: fallbackThreshold, Logger: log}
}

// RunTestOnStories replays every story and assembles the conversation
// evaluation report. In end-to-end mode user turns are classified through
// the interpreter as well, otherwise gold intents are assumed. Replay
// continues with the scripted action after a wrong prediction so one
// mistake does not cascade through the rest of the story.
func (e *StoryEvaluator) RunTestOnStories(ctx context.Context, agent model.Agent, interpreter model.Interpreter, stories []models.Story, e2e bool) (*models.StoryEvaluation, error) {
	var targets []string
	var predictions []string
	var actions []models.ActionEvaluation
	var failedTraces [][]models.ConversationEvent
	var successTraces [][]models.ConversationEvent

	numCorrect := 0
	numFailed := 0
	numWarnings := 0
	actionsInTrainingData := 0

	for _, story := range stories {
		replay, err := e.replayStory(ctx, agent, interpreter, story, e2e)
		if err != nil {
			return nil, fmt.Errorf("replay story %q: %w", story.Name, err)
		}

		targets = append(targets, replay.targets...)
		predictions = append(predictions, replay.predictions...)
		actions = append(actions, replay.actions...)
		actionsInTrainingData += replay.inTrainingData

		switch replay.outcome {
		case storyPassed:
			numCorrect++
			successTraces = append(successTraces, replay.events)
		case storyFailed:
			numFailed++
			failedTraces = append(failedTraces, replay.events)
		case storyWarning:
			numWarnings++
		}
	}

	report, precision, f1, accuracy := EvaluationMetrics(targets, predictions, "")

	evaluation := &models.StoryEvaluation{
		Report:               report,
		Precision:            precision,
		F1Score:              f1,
		Accuracy:             accuracy,
		Actions:              actions,
		IsEndToEndEvaluation: e2e,
		FailedStories:        failedTraces,
		SuccessfulStories:    successTraces,
	}
	if len(actions) > 0 {
		evaluation.InTrainingDataFraction = float64(actionsInTrainingData) / float64(len(actions))
	}

	// warnings are evaluated but count toward neither side of the ratio
	numConvs := numCorrect + numFailed
	if numConvs > 0 {
		evaluation.ConversationAccuracy = &models.ConversationAccuracy{
			Accuracy:     float64(numCorrect) / float64(numConvs),
			Correct:      numCorrect,
			WithWarnings: numWarnings,
			Total:        numConvs,
		}
	}

	e.Logger.Info("story evaluation finished", map[string]interface{}{
		"stories":  len(stories),
		"correct":  numCorrect,
		"failed":   numFailed,
		"warnings": numWarnings,
	})
	return evaluation, nil
}

type storyReplay struct {
	outcome        storyOutcome
	targets        []string
	predictions    []string
	actions        []models.ActionEvaluation
	events         []models.ConversationEvent
	inTrainingData int
}

func (e *StoryEvaluator) replayStory(ctx context.Context, agent model.Agent, interpreter model.Interpreter, story models.Story, e2e bool) (*storyReplay, error) {
	replay := &storyReplay{outcome: storyPassed}
	var history []model.ContextStep
	lowConfidence := false

	for _, step := range story.Steps {
		if step.IsUserStep() {
			event, err := e.replayUserStep(ctx, interpreter, step, e2e, replay)
			if err != nil {
				return nil, err
			}
			replay.events = append(replay.events, event)
			history = append(history, model.ContextStep{Intent: step.Intent, UserText: step.UserText})
			continue
		}

		prediction, err := agent.PredictNextAction(ctx, history)
		if err != nil {
			return nil, fmt.Errorf("predict action after %d turns: %w", len(history), err)
		}

		correct := prediction.Action == step.Action
		replay.targets = append(replay.targets, step.Action)
		replay.predictions = append(replay.predictions, prediction.Action)
		replay.actions = append(replay.actions, models.ActionEvaluation{
			Action:     step.Action,
			Predicted:  prediction.Action,
			Policy:     prediction.Policy,
			Confidence: prediction.Confidence,
		})
		replay.events = append(replay.events, models.ConversationEvent{
			Event:      "action",
			Name:       prediction.Action,
			Policy:     prediction.Policy,
			Confidence: prediction.Confidence,
			Correct:    correct,
		})

		if prediction.InTrainingData {
			replay.inTrainingData++
		}
		if !correct {
			replay.outcome = storyFailed
		} else if prediction.Confidence < e.FallbackThreshold {
			lowConfidence = true
		}

		history = append(history, model.ContextStep{Action: step.Action})
	}

	if replay.outcome == storyPassed && lowConfidence {
		replay.outcome = storyWarning
	}
	return replay, nil
}

func (e *StoryEvaluator) replayUserStep(ctx context.Context, interpreter model.Interpreter, step models.StoryStep, e2e bool, replay *storyReplay) (models.ConversationEvent, error) {
	event := models.ConversationEvent{
		Event:   "user",
		Name:    step.Intent,
		Text:    step.UserText,
		Correct: true,
	}

	if !e2e || interpreter == nil || step.UserText == "" {
		return event, nil
	}

	parsed, err := interpreter.Parse(ctx, step.UserText)
	if err != nil {
		return event, fmt.Errorf("classify %q: %w", step.UserText, err)
	}

	event.Name = parsed.Intent.Name
	event.Confidence = parsed.Intent.Confidence
	event.Correct = parsed.Intent.Name == step.Intent

	replay.targets = append(replay.targets, step.Intent)
	replay.predictions = append(replay.predictions, parsed.Intent.Name)
	if !event.Correct {
		replay.outcome = storyFailed
	}
	return event, nil
}
