// internal/store/store.go
package store

import (
	"context"

	"modeltest-workers/internal/models"
)

// TrainingStore fetches the persisted conversational artifacts a test run
// needs. Implementations are injected into the pipeline; the core holds no
// process-wide store state.
type TrainingStore interface {
	// IntentsWithExamples returns every intent of the bot together with its
	// training examples. Intents without examples are included with an empty
	// example list.
	IntentsWithExamples(ctx context.Context, botID string) ([]models.IntentExamples, error)

	// Stories returns the bot's full story corpus.
	Stories(ctx context.Context, botID string) ([]models.Story, error)

	// EntitySynonyms returns the bot's stored synonym map keyed by canonical
	// value.
	EntitySynonyms(ctx context.Context, botID string) (map[string][]string, error)
}
