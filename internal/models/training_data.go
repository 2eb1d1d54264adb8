// internal/models/training_data.go
package models

// Entity is a labeled span inside an utterance. Offsets index into the
// utterance text; End is exclusive.
type Entity struct {
	Start  int    `json:"start" yaml:"start"`
	End    int    `json:"end" yaml:"end"`
	Value  string `json:"value" yaml:"value"`
	Entity string `json:"entity" yaml:"entity"`
}

// TrainingExample is one stored utterance for an intent, as fetched from the
// training-data store. Immutable for the duration of a test run.
type TrainingExample struct {
	Intent   string   `json:"intent" yaml:"intent"`
	Text     string   `json:"text" yaml:"text"`
	Entities []Entity `json:"entities,omitempty" yaml:"entities,omitempty"`
}

// IntentExamples groups the training examples of one intent.
type IntentExamples struct {
	Intent   string            `json:"intent"`
	Examples []TrainingExample `json:"examples"`
}

// TestMessage is one augmented message of the NLU test corpus.
type TestMessage struct {
	Intent   string   `json:"intent" yaml:"intent"`
	Text     string   `json:"text" yaml:"text"`
	Entities []Entity `json:"entities,omitempty" yaml:"entities,omitempty"`
}

// StoryStep is a single step of a conversation test script: either a user
// utterance (Intent set, optionally UserText for end-to-end runs) or a bot
// action (Action set).
type StoryStep struct {
	Intent   string `json:"intent,omitempty" yaml:"intent,omitempty"`
	UserText string `json:"user,omitempty" yaml:"user,omitempty"`
	Action   string `json:"action,omitempty" yaml:"action,omitempty"`
}

// IsUserStep reports whether the step represents a user turn.
func (s StoryStep) IsUserStep() bool {
	return s.Intent != "" || s.UserText != ""
}

// Story is one scripted conversation flow.
type Story struct {
	Name  string      `json:"story" yaml:"story"`
	Steps []StoryStep `json:"steps" yaml:"steps"`
}

// EntitySynonym maps a canonical entity value to its stored synonyms.
type EntitySynonym struct {
	Value    string   `json:"value"`
	Synonyms []string `json:"synonyms"`
}
