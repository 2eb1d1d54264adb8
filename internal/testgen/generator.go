// internal/testgen/generator.go
package testgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"modeltest-workers/internal/augment"
	"modeltest-workers/internal/common/errors"
	"modeltest-workers/internal/common/logger"
	"modeltest-workers/internal/models"
	"modeltest-workers/internal/store"
)

// Generator assembles the augmented NLU corpus and the story test script
// for one bot and serializes both under the bot's working directory.
type Generator struct {
	Store     store.TrainingStore
	Augmenter *augment.Augmenter
	WorkDir   string
	Language  string
	Logger    logger.Logger
}

func NewGenerator(trainingStore store.TrainingStore, augmenter *augment.Augmenter, workDir, language string, log logger.Logger) *Generator {
	return &Generator{
		Store:     trainingStore,
		Augmenter: augmenter,
		WorkDir:   workDir,
		Language:  language,
		Logger:    log,
	}
}

// Create fetches the bot's training data, augments every utterance and
// writes the NLU corpus plus the story script to deterministic per-bot
// paths. Generation fails with a DATA_INSUFFICIENT error when any intent
// has no examples or when either corpus comes out empty.
func (g *Generator) Create(ctx context.Context, botID string, useTestStories bool) (string, string, error) {
	botHome := filepath.Join(g.WorkDir, botID)
	if err := os.MkdirAll(botHome, 0o755); err != nil {
		return "", "", fmt.Errorf("create working directory: %w", err)
	}

	intents, err := g.Store.IntentsWithExamples(ctx, botID)
	if err != nil {
		return "", "", errors.NewStoreQueryFailedError(err)
	}

	synonyms, err := g.Store.EntitySynonyms(ctx, botID)
	if err != nil {
		return "", "", errors.NewStoreQueryFailedError(err)
	}
	augmenter := g.Augmenter
	if len(synonyms) > 0 {
		augmenter = augmenter.WithSynonyms(augment.NewStoredSynonymLookup(synonyms, augmenter.Synonyms))
	}

	var messages []models.TestMessage
	for _, intent := range intents {
		prepared, err := g.prepareIntent(ctx, augmenter, intent)
		if err != nil {
			return "", "", err
		}
		messages = append(messages, prepared...)
	}

	stories, err := g.Store.Stories(ctx, botID)
	if err != nil {
		return "", "", errors.NewStoreQueryFailedError(err)
	}

	if len(stories) == 0 || len(messages) == 0 {
		return "", "", errors.NewDataInsufficientError(
			fmt.Sprintf("botId: %s, messages: %d, stories: %d", botID, len(messages), len(stories)))
	}

	nluPath := filepath.Join(botHome, "nlu.yml")
	if err := WriteNLUFile(nluPath, g.Language, messages); err != nil {
		return "", "", err
	}

	storiesName := "stories.yml"
	if useTestStories {
		storiesName = "test_stories.yml"
	}
	storiesPath := filepath.Join(botHome, storiesName)
	if err := WriteStoriesFile(storiesPath, stories, useTestStories); err != nil {
		return "", "", err
	}

	g.Logger.Info("test data generated", map[string]interface{}{
		"bot_id":   botID,
		"messages": len(messages),
		"stories":  len(stories),
	})
	return nluPath, storiesPath, nil
}

// prepareIntent augments one intent's examples and resolves inline span
// markup back into explicit offsets.
func (g *Generator) prepareIntent(ctx context.Context, augmenter *augment.Augmenter, intent models.IntentExamples) ([]models.TestMessage, error) {
	if len(intent.Examples) == 0 {
		return nil, errors.NewDataInsufficientError(
			fmt.Sprintf("no training examples found for intent: %s", intent.Intent))
	}

	augmented := augmenter.AugmentExamples(ctx, intent.Examples)

	messages := make([]models.TestMessage, 0, len(augmented))
	for _, example := range augmented {
		text, entities := augment.ExtractTextAndEntities(example)
		messages = append(messages, models.TestMessage{
			Intent:   intent.Intent,
			Text:     text,
			Entities: entities,
		})
	}
	return messages, nil
}
