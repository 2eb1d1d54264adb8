// internal/model/model.go
package model

import (
	"context"

	"modeltest-workers/internal/models"
)

// PredictedEntity is one entity span returned by a single extractor of the
// model pipeline.
type PredictedEntity struct {
	models.Entity
	Extractor  string  `json:"extractor"`
	Confidence float64 `json:"confidence"`
}

// ResponseSelection is the retrieval-intent prediction of a message, when
// the pipeline contains a response selector.
type ResponseSelection struct {
	Key        string  `json:"key"`
	Confidence float64 `json:"confidence"`
}

// ParseResult is the model's classification of one message.
type ParseResult struct {
	Text              string             `json:"text"`
	Intent            models.Prediction  `json:"intent"`
	ResponseSelection *ResponseSelection `json:"response_selection,omitempty"`
	Entities          []PredictedEntity  `json:"entities"`
}

// ContextStep is one prior turn handed to the dialogue model when predicting
// the next action.
type ContextStep struct {
	Intent   string `json:"intent,omitempty"`
	UserText string `json:"user,omitempty"`
	Action   string `json:"action,omitempty"`
}

// ActionPrediction is the dialogue model's next-action prediction.
type ActionPrediction struct {
	Action         string  `json:"action"`
	Confidence     float64 `json:"confidence"`
	Policy         string  `json:"policy,omitempty"`
	InTrainingData bool    `json:"in_training_data"`
}

// Interpreter is the NLU side of a loaded model. The evaluation core treats
// it as an opaque oracle.
type Interpreter interface {
	Parse(ctx context.Context, text string) (*ParseResult, error)
	// Extractors lists every entity extractor of the pipeline.
	Extractors() []string
	// PretrainedExtractors lists extractors that were not trained on the
	// bot's own data and must be excluded from evaluation.
	PretrainedExtractors() []string
	Language() string
}

// Agent is the dialogue-policy side of a loaded model.
type Agent interface {
	PredictNextAction(ctx context.Context, history []ContextStep) (*ActionPrediction, error)
}

// Loader resolves and loads trained model artifacts.
type Loader interface {
	// LatestModel returns the path of the newest trained model artifact for
	// the bot, or ErrModelNotFound.
	LatestModel(botID string) (string, error)
	Load(ctx context.Context, modelPath string) (Interpreter, Agent, error)
}
