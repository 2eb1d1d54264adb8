// internal/augment/augment.go
package augment

import (
	"context"
	"fmt"
	"strings"

	"modeltest-workers/internal/common/logger"
	"modeltest-workers/internal/models"
)

// maxDropVariants caps how many word-dropped copies one sentence produces.
const maxDropVariants = 3

// Augmenter expands stored training examples into a richer test corpus.
// It combines locally generated word-level variants, synonym-substituted
// entity spans and remote paraphrases. Every produced string may carry
// inline [value](entity) markup which callers resolve back into offsets
// with ExtractTextAndEntities.
type Augmenter struct {
	Paraphrase ParaphraseClient
	Synonyms   SynonymLookup
	Logger     logger.Logger
}

func NewAugmenter(paraphrase ParaphraseClient, synonyms SynonymLookup, log logger.Logger) *Augmenter {
	return &Augmenter{Paraphrase: paraphrase, Synonyms: synonyms, Logger: log}
}

// WithSynonyms returns a copy of the augmenter using the given lookup.
// The generator uses it to layer a bot's stored entity synonyms over the
// shared lookup for the duration of one run.
func (a *Augmenter) WithSynonyms(lookup SynonymLookup) *Augmenter {
	scoped := *a
	scoped.Synonyms = lookup
	return &scoped
}

// AugmentExamples produces the augmented sentence set for one batch of
// training examples. Paraphrase service failures contribute nothing
// instead of failing the batch.
func (a *Augmenter) AugmentExamples(ctx context.Context, examples []models.TrainingExample) []string {
	var augmented []string
	var allTexts []string
	var allStopwords []string
	var allEntityNames []string
	seenStopword := map[string]bool{}

	for _, example := range examples {
		var stopwords []string
		var entityNames []string
		for _, entity := range example.Entities {
			stopwords = append(stopwords, entity.Value)
			entityNames = append(entityNames, entity.Entity)
			if !seenStopword[entity.Value] {
				seenStopword[entity.Value] = true
				allStopwords = append(allStopwords, entity.Value)
				allEntityNames = append(allEntityNames, entity.Entity)
			}
		}

		variants := wordVariants(example.Text, stopwords)
		augmented = append(augmented, a.annotate(ctx, variants, stopwords, entityNames)...)
		allTexts = append(allTexts, example.Text)
	}

	paraphrases, err := a.Paraphrase.Paraphrases(ctx, allTexts)
	if err != nil {
		a.Logger.Warn("paraphrase augmentation skipped", map[string]interface{}{
			"error": err.Error(),
		})
		return augmented
	}
	if len(paraphrases) > 0 {
		augmented = append(augmented, a.annotate(ctx, paraphrases, allStopwords, allEntityNames)...)
		augmented = append(augmented, paraphrases...)
	}
	return augmented
}

// annotate emits, for every sentence containing a preserved entity value,
// one copy with the value marked as a span plus one copy per synonym with
// the synonym substituted and marked. Without preserved values the
// sentences pass through unchanged.
func (a *Augmenter) annotate(ctx context.Context, texts []string, stopwords []string, entityNames []string) []string {
	if len(stopwords) == 0 {
		return texts
	}

	var out []string
	for _, text := range texts {
		for i, word := range stopwords {
			if !strings.Contains(text, word) {
				continue
			}
			out = append(out, Annotate(text, word, entityNames[i]))
			for _, synonym := range a.lookupSynonyms(ctx, word) {
				out = append(out, strings.ReplaceAll(text, word, fmt.Sprintf("[%s](%s)", synonym, entityNames[i])))
			}
		}
	}
	return out
}

func (a *Augmenter) lookupSynonyms(ctx context.Context, word string) []string {
	if a.Synonyms == nil {
		return nil
	}
	synonyms, err := a.Synonyms.Synonyms(ctx, word)
	if err != nil {
		a.Logger.Warn("synonym lookup failed", map[string]interface{}{
			"word":  word,
			"error": err.Error(),
		})
		return nil
	}
	return synonyms
}

// wordVariants produces the sentence itself plus copies with one
// non-entity word removed, so evaluation also sees slightly perturbed
// phrasings of every stored utterance.
func wordVariants(text string, stopwords []string) []string {
	variants := []string{text}
	words := strings.Fields(text)
	if len(words) < 2 {
		return variants
	}

	dropped := 0
	for i, word := range words {
		if dropped >= maxDropVariants {
			break
		}
		if isEntityWord(word, stopwords) {
			continue
		}
		variant := strings.Join(append(append([]string{}, words[:i]...), words[i+1:]...), " ")
		variants = append(variants, variant)
		dropped++
	}
	return variants
}

// isEntityWord reports whether the word overlaps any preserved entity
// value, including multi-word values.
func isEntityWord(word string, stopwords []string) bool {
	trimmed := strings.ToLower(strings.Trim(word, ".,!?;:"))
	if trimmed == "" {
		return true
	}
	for _, stopword := range stopwords {
		if strings.Contains(strings.ToLower(stopword), trimmed) {
			return true
		}
	}
	return false
}
