// internal/models/report.go
package models

import "time"

// ClassMetrics holds precision/recall/F1 and support for one label of a
// classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// EvaluationReport is a structured classification report over a
// target/prediction label sequence.
type EvaluationReport struct {
	Classes     map[string]ClassMetrics `json:"classes"`
	MacroAvg    ClassMetrics            `json:"macro avg"`
	WeightedAvg ClassMetrics            `json:"weighted avg"`
	Accuracy    float64                 `json:"accuracy"`
	Support     int                     `json:"support"`
}

// Prediction is a predicted label with its confidence.
type Prediction struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// IntentMatch records one evaluated message for the intent success/error
// partitions of the report.
type IntentMatch struct {
	Text             string     `json:"text"`
	Intent           string     `json:"intent"`
	IntentPrediction Prediction `json:"intent_prediction"`
}

// ResponseSelectionMatch records one evaluated message for the
// response-selection success/error partitions.
type ResponseSelectionMatch struct {
	Text                        string     `json:"text"`
	IntentResponseKeyTarget     string     `json:"intent_response_key_target"`
	IntentResponseKeyPrediction Prediction `json:"intent_response_key_prediction"`
}

// IntentEvaluation is the aggregate intent section of an NLU report.
type IntentEvaluation struct {
	Report    *EvaluationReport `json:"report"`
	Precision float64           `json:"precision"`
	F1Score   float64           `json:"f1_score"`
	Accuracy  float64           `json:"accuracy"`
	Successes []IntentMatch     `json:"successes"`
	Errors    []IntentMatch     `json:"errors"`
}

// ResponseSelectionEvaluation mirrors IntentEvaluation for retrieval intents.
type ResponseSelectionEvaluation struct {
	Report    *EvaluationReport        `json:"report"`
	Precision float64                  `json:"precision"`
	F1Score   float64                  `json:"f1_score"`
	Accuracy  float64                  `json:"accuracy"`
	Successes []ResponseSelectionMatch `json:"successes"`
	Errors    []ResponseSelectionMatch `json:"errors"`
}

// EntityMatch is one token-level entity prediction kept for inspection,
// with the surrounding message text as context.
type EntityMatch struct {
	Text      string   `json:"text"`
	Entities  []Entity `json:"entities"`
	Predicted []Entity `json:"predicted_entities"`
}

// EntityEvaluation is the per-extractor entity section of an NLU report.
type EntityEvaluation struct {
	Report    *EvaluationReport `json:"report"`
	Precision float64           `json:"precision"`
	F1Score   float64           `json:"f1_score"`
	Accuracy  float64           `json:"accuracy"`
	Successes []EntityMatch     `json:"successes"`
	Errors    []EntityMatch     `json:"errors"`
}

// NLUEvaluation is the terminal NLU report. A section is nil when that
// prediction class produced no results.
type NLUEvaluation struct {
	IntentEvaluation            *IntentEvaluation            `json:"intent_evaluation"`
	ResponseSelectionEvaluation *ResponseSelectionEvaluation `json:"response_selection_evaluation"`
	EntityEvaluation            map[string]*EntityEvaluation `json:"entity_evaluation"`
}

// ConversationAccuracy summarizes story-level pass/fail counts. Total counts
// only stories that either passed or failed; stories with warnings are
// reported separately and excluded from the ratio.
type ConversationAccuracy struct {
	Accuracy     float64 `json:"accuracy"`
	Correct      int     `json:"correct"`
	WithWarnings int     `json:"with_warnings"`
	Total        int     `json:"total"`
}

// ConversationEvent is the transport-safe representation of one event of a
// replayed story trace.
type ConversationEvent struct {
	Event      string  `json:"event"`
	Name       string  `json:"name,omitempty"`
	Text       string  `json:"text,omitempty"`
	Policy     string  `json:"policy,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Correct    bool    `json:"correct"`
}

// ActionEvaluation records one target/predicted action pair.
type ActionEvaluation struct {
	Action     string  `json:"action"`
	Predicted  string  `json:"predicted"`
	Policy     string  `json:"policy,omitempty"`
	Confidence float64 `json:"confidence"`
}

// StoryEvaluation is the terminal story/conversation report.
type StoryEvaluation struct {
	ConversationAccuracy   *ConversationAccuracy `json:"conversation_accuracy,omitempty"`
	Report                 *EvaluationReport     `json:"report"`
	Precision              float64               `json:"precision"`
	F1Score                float64               `json:"f1"`
	Accuracy               float64               `json:"accuracy"`
	Actions                []ActionEvaluation    `json:"actions"`
	InTrainingDataFraction float64               `json:"in_training_data_fraction"`
	IsEndToEndEvaluation   bool                  `json:"is_end_to_end_evaluation"`
	FailedStories          [][]ConversationEvent `json:"failed_stories"`
	SuccessfulStories      [][]ConversationEvent `json:"successful_stories"`
}

// TestReport bundles both evaluations for one test run. NLU results come
// first regardless of evaluation completion order.
type TestReport struct {
	RunID       string           `json:"run_id"`
	BotID       string           `json:"bot_id"`
	NLU         *NLUEvaluation   `json:"nlu"`
	Stories     *StoryEvaluation `json:"stories"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}
