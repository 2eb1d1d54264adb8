// internal/evaluation/entities.go
package evaluation

import (
	"sort"
	"unicode"

	"modeltest-workers/internal/model"
	"modeltest-workers/internal/models"
)

// NoEntity is the canonical label for tokens carrying no entity. Empty
// and absent labels from every extractor are normalized to it before
// scoring.
const NoEntity = "no_entity"

// Token is one unit of the common token stream entity predictions are
// aligned on.
type Token struct {
	Text  string
	Start int
	End   int
}

// EntityResult carries one message's entity ground truth together with
// every extractor's predictions for it.
type EntityResult struct {
	Text        string
	Targets     []models.Entity
	Predictions map[string][]model.PredictedEntity
}

// alignedPrediction holds, per token of one message, the target label and
// each extractor's predicted label at the same position.
type alignedPrediction struct {
	targets     []string
	predictions map[string][]string
}

// Tokenize splits text into whitespace-delimited tokens with their
// offsets into the original string.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, Token{Text: text[start:i], Start: start, End: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: text[start:], Start: start, End: len(text)})
	}
	return tokens
}

// alignEntityPredictions projects the ground truth and every extractor's
// spans onto one shared token stream, so that position i refers to the
// same token for the target sequence and every prediction sequence.
func alignEntityPredictions(result EntityResult, extractors []string) alignedPrediction {
	tokens := Tokenize(result.Text)

	aligned := alignedPrediction{
		targets:     make([]string, len(tokens)),
		predictions: make(map[string][]string, len(extractors)),
	}

	for i, token := range tokens {
		aligned.targets[i] = labelForToken(token, result.Targets)
	}

	for _, extractor := range extractors {
		labels := make([]string, len(tokens))
		spans := predictedSpans(result.Predictions[extractor])
		for i, token := range tokens {
			labels[i] = labelForToken(token, spans)
		}
		aligned.predictions[extractor] = labels
	}
	return aligned
}

func predictedSpans(predictions []model.PredictedEntity) []models.Entity {
	spans := make([]models.Entity, 0, len(predictions))
	for _, p := range predictions {
		spans = append(spans, p.Entity)
	}
	return spans
}

// labelForToken returns the label of the first span covering the token's
// start offset, or the empty label when no span covers it.
func labelForToken(token Token, spans []models.Entity) string {
	for _, span := range spans {
		if span.Start <= token.Start && token.Start < span.End {
			return span.Entity
		}
	}
	return ""
}

// mergeLabels flattens aligned per-message label sequences into one label
// sequence. An empty extractor name merges the target labels.
func mergeLabels(aligned []alignedPrediction, extractor string) []string {
	var merged []string
	for _, a := range aligned {
		if extractor == "" {
			merged = append(merged, a.targets...)
		} else {
			merged = append(merged, a.predictions[extractor]...)
		}
	}
	return merged
}

// substituteLabels replaces every occurrence of old with replacement.
func substituteLabels(labels []string, old, replacement string) []string {
	out := make([]string, len(labels))
	for i, label := range labels {
		if label == old {
			out[i] = replacement
		} else {
			out[i] = label
		}
	}
	return out
}

// EvaluateEntities scores every extractor's aligned predictions against
// the shared ground truth and returns one report per extractor. Tokens
// labeled with the canonical null-entity tag count toward accuracy but
// not toward precision, recall or F1.
func EvaluateEntities(results []EntityResult, extractors []string) map[string]*models.EntityEvaluation {
	if len(results) == 0 || len(extractors) == 0 {
		return nil
	}

	sorted := append([]string{}, extractors...)
	sort.Strings(sorted)

	aligned := make([]alignedPrediction, len(results))
	for i, result := range results {
		aligned[i] = alignEntityPredictions(result, sorted)
	}

	mergedTargets := substituteLabels(mergeLabels(aligned, ""), "", NoEntity)

	evaluation := make(map[string]*models.EntityEvaluation, len(sorted))
	for _, extractor := range sorted {
		mergedPredictions := substituteLabels(mergeLabels(aligned, extractor), "", NoEntity)

		report, precision, f1, accuracy := EvaluationMetrics(mergedTargets, mergedPredictions, NoEntity)
		successes, errors := partitionEntityPredictions(results, aligned, extractor)

		evaluation[extractor] = &models.EntityEvaluation{
			Report:    report,
			Precision: precision,
			F1Score:   f1,
			Accuracy:  accuracy,
			Successes: successes,
			Errors:    errors,
		}
	}
	return evaluation
}

// partitionEntityPredictions splits messages into fully correct and
// incorrect predictions for one extractor. Messages without any target
// entity only show up when the extractor predicted something wrong on
// them.
func partitionEntityPredictions(results []EntityResult, aligned []alignedPrediction, extractor string) ([]models.EntityMatch, []models.EntityMatch) {
	var successes []models.EntityMatch
	var errors []models.EntityMatch

	for i, result := range results {
		match := models.EntityMatch{
			Text:      result.Text,
			Entities:  result.Targets,
			Predicted: predictedSpans(result.Predictions[extractor]),
		}

		correct := true
		for j, target := range aligned[i].targets {
			if aligned[i].predictions[extractor][j] != target {
				correct = false
				break
			}
		}

		if !correct {
			errors = append(errors, match)
		} else if len(result.Targets) > 0 {
			successes = append(successes, match)
		}
	}
	return successes, errors
}
