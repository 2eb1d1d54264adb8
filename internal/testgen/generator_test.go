package testgen

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modeltest-workers/internal/augment"
	"modeltest-workers/internal/common/errors"
	"modeltest-workers/internal/common/logger"
	"modeltest-workers/internal/models"
)

type fakeStore struct {
	intents  []models.IntentExamples
	stories  []models.Story
	synonyms map[string][]string
}

func (f *fakeStore) IntentsWithExamples(_ context.Context, _ string) ([]models.IntentExamples, error) {
	return f.intents, nil
}

func (f *fakeStore) Stories(_ context.Context, _ string) ([]models.Story, error) {
	return f.stories, nil
}

func (f *fakeStore) EntitySynonyms(_ context.Context, _ string) (map[string][]string, error) {
	return f.synonyms, nil
}

type noParaphrases struct{}

func (noParaphrases) Paraphrases(_ context.Context, _ []string) ([]string, error) {
	return nil, nil
}

type noSynonyms struct{}

func (noSynonyms) Synonyms(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func newTestGenerator(t *testing.T, trainingStore *fakeStore) *Generator {
	t.Helper()
	augmenter := augment.NewAugmenter(noParaphrases{}, noSynonyms{}, logger.NewNoOpLogger())
	return NewGenerator(trainingStore, augmenter, t.TempDir(), "en", logger.NewNoOpLogger())
}

func greetCorpus() *fakeStore {
	return &fakeStore{
		intents: []models.IntentExamples{
			{
				Intent: "greet",
				Examples: []models.TrainingExample{
					{Intent: "greet", Text: "hello"},
					{Intent: "greet", Text: "hi there"},
				},
			},
		},
		stories: []models.Story{
			{
				Name: "happy_path",
				Steps: []models.StoryStep{
					{Intent: "greet", UserText: "hello"},
					{Action: "utter_greet"},
				},
			},
		},
	}
}

func TestCreateWritesBothCorpora(t *testing.T) {
	generator := newTestGenerator(t, greetCorpus())

	nluPath, storiesPath, err := generator.Create(context.Background(), "bot-1", false)
	require.NoError(t, err)

	assert.Equal(t, "nlu.yml", filepath.Base(nluPath))
	assert.Equal(t, "stories.yml", filepath.Base(storiesPath))

	messages, err := ReadNLUFile(nluPath)
	require.NoError(t, err)
	assert.NotEmpty(t, messages)
	for _, message := range messages {
		assert.Equal(t, "greet", message.Intent)
		assert.NotContains(t, message.Text, "](")
	}

	stories, isTestStory, err := ReadStoriesFile(storiesPath)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "happy_path", stories[0].Name)
	assert.False(t, isTestStory)
}

func TestCreateUsesTestStoryDialect(t *testing.T) {
	generator := newTestGenerator(t, greetCorpus())

	_, storiesPath, err := generator.Create(context.Background(), "bot-1", true)
	require.NoError(t, err)

	assert.Equal(t, "test_stories.yml", filepath.Base(storiesPath))
	_, isTestStory, err := ReadStoriesFile(storiesPath)
	require.NoError(t, err)
	assert.True(t, isTestStory)
}

func TestCreateResolvesEntityMarkupIntoOffsets(t *testing.T) {
	trainingStore := &fakeStore{
		intents: []models.IntentExamples{
			{
				Intent: "order_food",
				Examples: []models.TrainingExample{
					{
						Intent: "order_food",
						Text:   "get me a burger",
						Entities: []models.Entity{
							{Start: 9, End: 15, Value: "burger", Entity: "food"},
						},
					},
				},
			},
		},
		stories: greetCorpus().stories,
	}
	generator := newTestGenerator(t, trainingStore)

	nluPath, _, err := generator.Create(context.Background(), "bot-1", false)
	require.NoError(t, err)

	messages, err := ReadNLUFile(nluPath)
	require.NoError(t, err)

	found := false
	for _, message := range messages {
		for _, entity := range message.Entities {
			assert.Equal(t, entity.Value, message.Text[entity.Start:entity.End])
			if message.Text == "get me a burger" && entity.Value == "burger" {
				found = true
			}
		}
		assert.NotContains(t, message.Text, "](")
	}
	assert.True(t, found, "annotated example should round-trip into explicit offsets")
}

func TestCreateUsesStoredEntitySynonyms(t *testing.T) {
	trainingStore := &fakeStore{
		intents: []models.IntentExamples{
			{
				Intent: "order_food",
				Examples: []models.TrainingExample{
					{
						Intent: "order_food",
						Text:   "get me a burger",
						Entities: []models.Entity{
							{Start: 9, End: 15, Value: "burger", Entity: "food"},
						},
					},
				},
			},
		},
		stories:  greetCorpus().stories,
		synonyms: map[string][]string{"burger": {"cheeseburger"}},
	}
	generator := newTestGenerator(t, trainingStore)

	nluPath, _, err := generator.Create(context.Background(), "bot-1", false)
	require.NoError(t, err)

	messages, err := ReadNLUFile(nluPath)
	require.NoError(t, err)

	found := false
	for _, message := range messages {
		for _, entity := range message.Entities {
			if entity.Value == "cheeseburger" && entity.Entity == "food" {
				found = true
			}
		}
	}
	assert.True(t, found, "stored synonym should appear as a substituted entity span")
}

func TestCreateWritesCorpusLanguage(t *testing.T) {
	generator := newTestGenerator(t, greetCorpus())

	nluPath, _, err := generator.Create(context.Background(), "bot-1", false)
	require.NoError(t, err)

	raw, err := os.ReadFile(nluPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "language: en")
}

func TestCreateFailsForIntentWithoutExamples(t *testing.T) {
	trainingStore := greetCorpus()
	trainingStore.intents = append(trainingStore.intents, models.IntentExamples{Intent: "orphan"})
	generator := newTestGenerator(t, trainingStore)

	_, _, err := generator.Create(context.Background(), "bot-1", false)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataInsufficient))
}

func TestCreateFailsWithoutStories(t *testing.T) {
	trainingStore := greetCorpus()
	trainingStore.stories = nil
	generator := newTestGenerator(t, trainingStore)

	_, _, err := generator.Create(context.Background(), "bot-1", false)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataInsufficient))
}

func TestCreateFailsWithoutIntents(t *testing.T) {
	trainingStore := greetCorpus()
	trainingStore.intents = nil
	generator := newTestGenerator(t, trainingStore)

	_, _, err := generator.Create(context.Background(), "bot-1", false)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataInsufficient))
}
