package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modeltest-workers/internal/model"
	"modeltest-workers/internal/models"
)

func predicted(extractor string, start, end int, value, entity string, confidence float64) model.PredictedEntity {
	return model.PredictedEntity{
		Entity:     models.Entity{Start: start, End: end, Value: value, Entity: entity},
		Extractor:  extractor,
		Confidence: confidence,
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("get me a burger")
	require.Len(t, tokens, 4)
	assert.Equal(t, Token{Text: "get", Start: 0, End: 3}, tokens[0])
	assert.Equal(t, Token{Text: "burger", Start: 9, End: 15}, tokens[3])

	assert.Empty(t, Tokenize("   "))
	assert.Equal(t, []Token{{Text: "hi", Start: 0, End: 2}}, Tokenize("hi"))
}

func TestEvaluateEntitiesPerfectExtractor(t *testing.T) {
	results := []EntityResult{
		{
			Text:    "get me a burger",
			Targets: []models.Entity{{Start: 9, End: 15, Value: "burger", Entity: "food"}},
			Predictions: map[string][]model.PredictedEntity{
				"DIETClassifier": {predicted("DIETClassifier", 9, 15, "burger", "food", 0.97)},
			},
		},
	}

	evaluation := EvaluateEntities(results, []string{"DIETClassifier"})
	require.Contains(t, evaluation, "DIETClassifier")

	diet := evaluation["DIETClassifier"]
	assert.Equal(t, 1.0, diet.Accuracy)
	assert.Equal(t, 1.0, diet.Precision)
	assert.Len(t, diet.Successes, 1)
	assert.Empty(t, diet.Errors)
	require.Contains(t, diet.Report.Classes, "food")
	assert.NotContains(t, diet.Report.Classes, NoEntity)
}

func TestEvaluateEntitiesWrongSpan(t *testing.T) {
	results := []EntityResult{
		{
			Text:    "fly to paris tomorrow",
			Targets: []models.Entity{{Start: 7, End: 12, Value: "paris", Entity: "destination"}},
			Predictions: map[string][]model.PredictedEntity{
				"CRFEntityExtractor": {predicted("CRFEntityExtractor", 13, 21, "tomorrow", "destination", 0.6)},
			},
		},
	}

	evaluation := EvaluateEntities(results, []string{"CRFEntityExtractor"})
	crf := evaluation["CRFEntityExtractor"]

	assert.Less(t, crf.Accuracy, 1.0)
	assert.Empty(t, crf.Successes)
	require.Len(t, crf.Errors, 1)
	assert.Equal(t, "fly to paris tomorrow", crf.Errors[0].Text)
}

func TestEvaluateEntitiesMultipleExtractorsShareAlignment(t *testing.T) {
	results := []EntityResult{
		{
			Text:    "get me a burger",
			Targets: []models.Entity{{Start: 9, End: 15, Value: "burger", Entity: "food"}},
			Predictions: map[string][]model.PredictedEntity{
				"DIETClassifier":     {predicted("DIETClassifier", 9, 15, "burger", "food", 0.95)},
				"CRFEntityExtractor": {},
			},
		},
	}

	evaluation := EvaluateEntities(results, []string{"CRFEntityExtractor", "DIETClassifier"})
	require.Len(t, evaluation, 2)

	assert.Equal(t, 1.0, evaluation["DIETClassifier"].Accuracy)
	// missed entity: three null tokens match, the entity token does not
	assert.Equal(t, 0.75, evaluation["CRFEntityExtractor"].Accuracy)
	assert.Len(t, evaluation["CRFEntityExtractor"].Errors, 1)
}

func TestEvaluateEntitiesAllNullTokens(t *testing.T) {
	results := []EntityResult{
		{
			Text:        "hello there",
			Predictions: map[string][]model.PredictedEntity{"DIETClassifier": nil},
		},
	}

	evaluation := EvaluateEntities(results, []string{"DIETClassifier"})
	diet := evaluation["DIETClassifier"]

	assert.Equal(t, 1.0, diet.Accuracy)
	assert.Empty(t, diet.Report.Classes)
	// no target entities, so the message is not a success either
	assert.Empty(t, diet.Successes)
	assert.Empty(t, diet.Errors)
}

func TestEvaluateEntitiesIdempotent(t *testing.T) {
	results := []EntityResult{
		{
			Text:    "book a table in new york",
			Targets: []models.Entity{{Start: 16, End: 24, Value: "new york", Entity: "city"}},
			Predictions: map[string][]model.PredictedEntity{
				"DIETClassifier": {predicted("DIETClassifier", 16, 24, "new york", "city", 0.9)},
			},
		},
		{
			Text:    "get me a burger",
			Targets: []models.Entity{{Start: 9, End: 15, Value: "burger", Entity: "food"}},
			Predictions: map[string][]model.PredictedEntity{
				"DIETClassifier": {predicted("DIETClassifier", 0, 3, "get", "food", 0.2)},
			},
		},
	}
	extractors := []string{"DIETClassifier"}

	first := EvaluateEntities(results, extractors)
	second := EvaluateEntities(results, extractors)

	assert.Equal(t, first, second)
}

func TestEvaluateEntitiesEmptyInputs(t *testing.T) {
	assert.Nil(t, EvaluateEntities(nil, []string{"DIETClassifier"}))
	assert.Nil(t, EvaluateEntities([]EntityResult{{Text: "hi"}}, nil))
}
