package augment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modeltest-workers/internal/common/database"
	"modeltest-workers/internal/common/logger"
	"modeltest-workers/internal/models"
)

type stubSynonyms struct {
	synonyms map[string][]string
	calls    int
}

func (s *stubSynonyms) Synonyms(_ context.Context, word string) ([]string, error) {
	s.calls++
	return s.synonyms[word], nil
}

type failingSynonyms struct{}

func (failingSynonyms) Synonyms(_ context.Context, _ string) ([]string, error) {
	return nil, context.DeadlineExceeded
}

type stubParaphrase struct {
	paraphrases []string
	err         error
	got         []string
}

func (s *stubParaphrase) Paraphrases(_ context.Context, sentences []string) ([]string, error) {
	s.got = sentences
	return s.paraphrases, s.err
}

func TestAugmentExamplesWithEntities(t *testing.T) {
	synonyms := &stubSynonyms{synonyms: map[string][]string{
		"burger": {"sandwich"},
	}}
	paraphrase := &stubParaphrase{paraphrases: []string{"could you fetch a burger"}}

	augmenter := NewAugmenter(paraphrase, synonyms, logger.NewNoOpLogger())
	result := augmenter.AugmentExamples(context.Background(), []models.TrainingExample{
		{
			Intent: "order_food",
			Text:   "get me a burger",
			Entities: []models.Entity{
				{Start: 9, End: 15, Value: "burger", Entity: "food"},
			},
		},
	})

	assert.Equal(t, []string{"get me a burger"}, paraphrase.got)
	assert.Contains(t, result, "get me a [burger](food)")
	assert.Contains(t, result, "get me a [sandwich](food)")
	// annotated paraphrase plus the raw paraphrase itself
	assert.Contains(t, result, "could you fetch a [burger](food)")
	assert.Contains(t, result, "could you fetch a burger")
}

func TestAugmentExamplesWithoutEntitiesPassesThrough(t *testing.T) {
	paraphrase := &stubParaphrase{paraphrases: []string{"hi there"}}
	augmenter := NewAugmenter(paraphrase, &stubSynonyms{}, logger.NewNoOpLogger())

	result := augmenter.AugmentExamples(context.Background(), []models.TrainingExample{
		{Intent: "greet", Text: "hello"},
	})

	assert.Contains(t, result, "hello")
	assert.Contains(t, result, "hi there")
	for _, text := range result {
		assert.NotContains(t, text, "](")
	}
}

func TestAugmentExamplesProducesWordDropVariants(t *testing.T) {
	paraphrase := &stubParaphrase{}
	augmenter := NewAugmenter(paraphrase, &stubSynonyms{}, logger.NewNoOpLogger())

	result := augmenter.AugmentExamples(context.Background(), []models.TrainingExample{
		{Intent: "greet", Text: "hello there friend"},
	})

	assert.Contains(t, result, "hello there friend")
	assert.Contains(t, result, "there friend")
	assert.Contains(t, result, "hello friend")
}

func TestAugmentSurvivesParaphraseServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPParaphraseClient(server.URL, 5*time.Second, logger.NewNoOpLogger())
	synonyms := &stubSynonyms{synonyms: map[string][]string{
		"burger": {"sandwich"},
	}}
	augmenter := NewAugmenter(client, synonyms, logger.NewNoOpLogger())

	result := augmenter.AugmentExamples(context.Background(), []models.TrainingExample{
		{
			Intent: "order_food",
			Text:   "get me a burger",
			Entities: []models.Entity{
				{Start: 9, End: 15, Value: "burger", Entity: "food"},
			},
		},
	})

	// locally generated variants still come back
	require.NotEmpty(t, result)
	assert.Contains(t, result, "get me a [burger](food)")
	assert.Contains(t, result, "get me a [sandwich](food)")
}

func TestHTTPParaphraseClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sentences []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sentences))
		assert.Equal(t, []string{"hello"}, sentences)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"paraphrases": []string{"hi", "hey there"},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPParaphraseClient(server.URL, 5*time.Second, logger.NewNoOpLogger())
	paraphrases, err := client.Paraphrases(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "hey there"}, paraphrases)
}

func TestHTTPParaphraseClientMissingParaphrasesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	client := NewHTTPParaphraseClient(server.URL, 5*time.Second, logger.NewNoOpLogger())
	paraphrases, err := client.Paraphrases(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Empty(t, paraphrases)
}

func TestStoredSynonymLookupMergesFallback(t *testing.T) {
	upstream := &stubSynonyms{synonyms: map[string][]string{
		"burger": {"sandwich", "patty"},
	}}
	lookup := NewStoredSynonymLookup(map[string][]string{
		"burger": {"cheeseburger", "sandwich"},
	}, upstream)

	merged, err := lookup.Synonyms(context.Background(), "burger")
	require.NoError(t, err)
	// stored synonyms come first, fallback results deduped in after
	assert.Equal(t, []string{"cheeseburger", "sandwich", "patty"}, merged)
}

func TestStoredSynonymLookupSurvivesFallbackError(t *testing.T) {
	lookup := NewStoredSynonymLookup(map[string][]string{
		"burger": {"cheeseburger"},
	}, failingSynonyms{})

	synonyms, err := lookup.Synonyms(context.Background(), "burger")
	require.NoError(t, err)
	assert.Equal(t, []string{"cheeseburger"}, synonyms)

	_, err = lookup.Synonyms(context.Background(), "pizza")
	assert.Error(t, err, "words without stored synonyms still surface the fallback error")
}

func TestCachedSynonymLookup(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	upstream := &stubSynonyms{synonyms: map[string][]string{
		"burger": {"sandwich", "patty"},
	}}

	cached := NewCachedSynonymLookup(upstream, redisClient, time.Minute, logger.NewNoOpLogger())

	first, err := cached.Synonyms(context.Background(), "burger")
	require.NoError(t, err)
	assert.Equal(t, []string{"sandwich", "patty"}, first)
	assert.Equal(t, 1, upstream.calls)

	second, err := cached.Synonyms(context.Background(), "burger")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls, "second lookup should be served from cache")
}

func TestHTTPSynonymLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "burger", r.URL.Query().Get("word"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"synonyms": ["sandwich"]}}`))
	}))
	defer server.Close()

	lookup := NewHTTPSynonymLookup(server.URL, 5*time.Second)
	synonyms, err := lookup.Synonyms(context.Background(), "burger")
	require.NoError(t, err)
	assert.Equal(t, []string{"sandwich"}, synonyms)
}
