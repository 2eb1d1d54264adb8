// internal/augment/paraphrase.go
package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	commonhttp "modeltest-workers/internal/common/http"
	"modeltest-workers/internal/common/logger"
)

// ParaphraseClient produces paraphrases for a batch of sentences.
type ParaphraseClient interface {
	Paraphrases(ctx context.Context, sentences []string) ([]string, error)
}

type paraphraseResponse struct {
	Data struct {
		Paraphrases []string `json:"paraphrases"`
	} `json:"data"`
}

// HTTPParaphraseClient calls the paraphrase augmentation service. A
// non-200 response means no paraphrases rather than an error, so a
// degraded service never blocks test data generation.
type HTTPParaphraseClient struct {
	URL        string
	Timeout    time.Duration
	Logger     logger.Logger
	httpClient *commonhttp.Client
}

func NewHTTPParaphraseClient(url string, timeout time.Duration, log logger.Logger) *HTTPParaphraseClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPParaphraseClient{
		URL:        url,
		Timeout:    timeout,
		Logger:     log,
		httpClient: commonhttp.NewClient(timeout),
	}
}

func (c *HTTPParaphraseClient) Paraphrases(ctx context.Context, sentences []string) ([]string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := c.httpClient.PostJSON(reqCtx, c.URL, sentences)
	if err != nil {
		return nil, fmt.Errorf("paraphrase request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.Logger.Warn("paraphrase service returned non-200, skipping paraphrases", map[string]interface{}{
			"url":         c.URL,
			"status_code": resp.StatusCode,
		})
		return nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read paraphrase response: %w", err)
	}

	var parsed paraphraseResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.Logger.Warn("paraphrase response is not valid JSON, skipping paraphrases", map[string]interface{}{
			"url": c.URL,
		})
		return nil, nil
	}

	return parsed.Data.Paraphrases, nil
}
