// internal/evaluation/nlu.go
package evaluation

import (
	"context"
	"fmt"

	"modeltest-workers/internal/common/logger"
	"modeltest-workers/internal/model"
	"modeltest-workers/internal/models"
)

// intentResult is one message's intent target and prediction.
type intentResult struct {
	text       string
	target     string
	prediction models.Prediction
}

// responseSelectionResult is one message's retrieval-intent target and
// prediction.
type responseSelectionResult struct {
	text       string
	target     string
	prediction models.Prediction
}

// NLUEvaluator runs an interpreter over a labeled test corpus and scores
// intents, response selections and entities.
type NLUEvaluator struct {
	Logger logger.Logger
}

func NewNLUEvaluator(log logger.Logger) *NLUEvaluator {
	return &NLUEvaluator{Logger: log}
}

// RunTestOnNLU parses every test message through the interpreter and
// assembles the NLU evaluation report. Extractors flagged as pretrained
// are dropped from entity scoring since they were not trained on the
// bot's own data. A report section stays nil when its prediction class
// produced no results.
func (e *NLUEvaluator) RunTestOnNLU(ctx context.Context, interpreter model.Interpreter, messages []models.TestMessage) (*models.NLUEvaluation, error) {
	extractors := trainableExtractors(interpreter)

	var intentResults []intentResult
	var responseResults []responseSelectionResult
	var entityResults []EntityResult

	for _, message := range messages {
		parsed, err := interpreter.Parse(ctx, message.Text)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", message.Text, err)
		}

		intentResults = append(intentResults, intentResult{
			text:       message.Text,
			target:     message.Intent,
			prediction: parsed.Intent,
		})

		if parsed.ResponseSelection != nil {
			responseResults = append(responseResults, responseSelectionResult{
				text:   message.Text,
				target: message.Intent,
				prediction: models.Prediction{
					Name:       parsed.ResponseSelection.Key,
					Confidence: parsed.ResponseSelection.Confidence,
				},
			})
		}

		if len(message.Entities) > 0 || len(parsed.Entities) > 0 {
			entityResults = append(entityResults, EntityResult{
				Text:        message.Text,
				Targets:     message.Entities,
				Predictions: groupByExtractor(parsed.Entities, extractors),
			})
		}
	}

	result := &models.NLUEvaluation{}
	if len(intentResults) > 0 {
		result.IntentEvaluation = evaluateIntents(intentResults)
	}
	if len(responseResults) > 0 {
		result.ResponseSelectionEvaluation = evaluateResponseSelections(responseResults)
	}
	if len(entityResults) > 0 && len(extractors) > 0 {
		result.EntityEvaluation = EvaluateEntities(entityResults, extractors)
	}

	e.Logger.Info("nlu evaluation finished", map[string]interface{}{
		"messages":         len(messages),
		"entity_messages":  len(entityResults),
		"extractors":       len(extractors),
		"response_results": len(responseResults),
	})
	return result, nil
}

// trainableExtractors returns the pipeline's extractors minus the
// pretrained ones.
func trainableExtractors(interpreter model.Interpreter) []string {
	pretrained := map[string]bool{}
	for _, name := range interpreter.PretrainedExtractors() {
		pretrained[name] = true
	}

	var extractors []string
	for _, name := range interpreter.Extractors() {
		if !pretrained[name] {
			extractors = append(extractors, name)
		}
	}
	return extractors
}

func groupByExtractor(entities []model.PredictedEntity, extractors []string) map[string][]model.PredictedEntity {
	allowed := map[string]bool{}
	for _, name := range extractors {
		allowed[name] = true
	}

	grouped := map[string][]model.PredictedEntity{}
	for _, entity := range entities {
		if allowed[entity.Extractor] {
			grouped[entity.Extractor] = append(grouped[entity.Extractor], entity)
		}
	}
	return grouped
}

func evaluateIntents(results []intentResult) *models.IntentEvaluation {
	targets := make([]string, len(results))
	predictions := make([]string, len(results))
	for i, r := range results {
		targets[i] = r.target
		predictions[i] = r.prediction.Name
	}

	report, precision, f1, accuracy := EvaluationMetrics(targets, predictions, "")

	evaluation := &models.IntentEvaluation{
		Report:    report,
		Precision: precision,
		F1Score:   f1,
		Accuracy:  accuracy,
	}
	for _, r := range results {
		match := models.IntentMatch{
			Text:             r.text,
			Intent:           r.target,
			IntentPrediction: r.prediction,
		}
		if r.target == r.prediction.Name {
			evaluation.Successes = append(evaluation.Successes, match)
		} else {
			evaluation.Errors = append(evaluation.Errors, match)
		}
	}
	return evaluation
}

func evaluateResponseSelections(results []responseSelectionResult) *models.ResponseSelectionEvaluation {
	targets := make([]string, len(results))
	predictions := make([]string, len(results))
	for i, r := range results {
		targets[i] = r.target
		predictions[i] = r.prediction.Name
	}

	report, precision, f1, accuracy := EvaluationMetrics(targets, predictions, "")

	evaluation := &models.ResponseSelectionEvaluation{
		Report:    report,
		Precision: precision,
		F1Score:   f1,
		Accuracy:  accuracy,
	}
	for _, r := range results {
		match := models.ResponseSelectionMatch{
			Text:                        r.text,
			IntentResponseKeyTarget:     r.target,
			IntentResponseKeyPrediction: r.prediction,
		}
		if r.target == r.prediction.Name {
			evaluation.Successes = append(evaluation.Successes, match)
		} else {
			evaluation.Errors = append(evaluation.Errors, match)
		}
	}
	return evaluation
}
