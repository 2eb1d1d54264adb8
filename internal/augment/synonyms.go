// internal/augment/synonyms.go
package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"modeltest-workers/internal/common/database"
	commonhttp "modeltest-workers/internal/common/http"
	"modeltest-workers/internal/common/logger"
)

// SynonymLookup returns lexical synonyms for a word. An empty result is
// not an error.
type SynonymLookup interface {
	Synonyms(ctx context.Context, word string) ([]string, error)
}

type synonymResponse struct {
	Data struct {
		Synonyms []string `json:"synonyms"`
	} `json:"data"`
}

// HTTPSynonymLookup queries the lexical synonym service.
type HTTPSynonymLookup struct {
	URL        string
	Timeout    time.Duration
	httpClient *commonhttp.Client
}

func NewHTTPSynonymLookup(serviceURL string, timeout time.Duration) *HTTPSynonymLookup {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSynonymLookup{
		URL:        serviceURL,
		Timeout:    timeout,
		httpClient: commonhttp.NewClient(timeout),
	}
}

func (l *HTTPSynonymLookup) Synonyms(ctx context.Context, word string) ([]string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s?word=%s", l.URL, url.QueryEscape(word))
	resp, err := l.httpClient.Get(reqCtx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("synonym request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synonym service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synonym response: %w", err)
	}

	var parsed synonymResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode synonym response: %w", err)
	}
	return parsed.Data.Synonyms, nil
}

// StoredSynonymLookup serves a bot's stored entity synonyms first and
// merges in results from a fallback lookup. A fallback failure degrades
// to the stored set instead of erroring when one exists.
type StoredSynonymLookup struct {
	synonyms map[string][]string
	next     SynonymLookup
}

func NewStoredSynonymLookup(synonyms map[string][]string, next SynonymLookup) *StoredSynonymLookup {
	return &StoredSynonymLookup{synonyms: synonyms, next: next}
}

func (l *StoredSynonymLookup) Synonyms(ctx context.Context, word string) ([]string, error) {
	stored := l.synonyms[word]
	if l.next == nil {
		return stored, nil
	}

	remote, err := l.next.Synonyms(ctx, word)
	if err != nil {
		if len(stored) > 0 {
			return stored, nil
		}
		return nil, err
	}

	seen := make(map[string]bool, len(stored))
	merged := make([]string, 0, len(stored)+len(remote))
	for _, synonym := range stored {
		if !seen[synonym] {
			seen[synonym] = true
			merged = append(merged, synonym)
		}
	}
	for _, synonym := range remote {
		if !seen[synonym] {
			seen[synonym] = true
			merged = append(merged, synonym)
		}
	}
	return merged, nil
}

// CachedSynonymLookup caches lookups in Redis so repeated words across a
// test run hit the service once.
type CachedSynonymLookup struct {
	next   SynonymLookup
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSynonymLookup(next SynonymLookup, redis *database.RedisClient, ttl time.Duration, log logger.Logger) *CachedSynonymLookup {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &CachedSynonymLookup{next: next, redis: redis, ttl: ttl, logger: log}
}

func (c *CachedSynonymLookup) Synonyms(ctx context.Context, word string) ([]string, error) {
	key := "synonyms:" + word

	cached, err := c.redis.Get(ctx, key)
	if err == nil {
		var synonyms []string
		if err := json.Unmarshal([]byte(cached), &synonyms); err == nil {
			return synonyms, nil
		}
	}

	synonyms, err := c.next.Synonyms(ctx, word)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(synonyms)
	if err == nil {
		if err := c.redis.Set(ctx, key, string(encoded), c.ttl); err != nil {
			c.logger.Warn("failed to cache synonyms", map[string]interface{}{
				"word": word,
			})
		}
	}
	return synonyms, nil
}
