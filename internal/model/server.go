// internal/model/server.go
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	commonhttp "modeltest-workers/internal/common/http"
	"modeltest-workers/internal/common/logger"
)

var (
	ErrModelServerFailed  = errors.New("MODEL_SERVER_FAILED")
	ErrModelServerTimeout = errors.New("MODEL_SERVER_TIMEOUT")
)

const maxRequestAttempts = 2

// serverModel talks to a running model server over HTTP. One instance is
// bound to one activated model artifact.
type serverModel struct {
	baseURL   string
	modelPath string
	client    *commonhttp.Client
	logger    logger.Logger

	language   string
	extractors []string
	pretrained []string
}

func newServerModel(baseURL, modelPath string, timeout time.Duration, log logger.Logger) *serverModel {
	return &serverModel{
		baseURL:   baseURL,
		modelPath: modelPath,
		client: commonhttp.NewClient(timeout),
		logger: log.With(map[string]interface{}{
			"modelPath": modelPath,
		}),
	}
}

// activate loads the model artifact into the server and records pipeline
// metadata used during evaluation.
func (m *serverModel) activate(ctx context.Context) error {
	var status struct {
		Language             string   `json:"language"`
		Extractors           []string `json:"extractors"`
		PretrainedExtractors []string `json:"pretrained_extractors"`
	}

	body := map[string]interface{}{
		"model_file": m.modelPath,
	}
	if err := m.post(ctx, "/model/load", body, &status); err != nil {
		return err
	}

	m.language = status.Language
	m.extractors = status.Extractors
	m.pretrained = status.PretrainedExtractors

	m.logger.Info("model activated", map[string]interface{}{
		"language":   m.language,
		"extractors": m.extractors,
	})
	return nil
}

func (m *serverModel) Parse(ctx context.Context, text string) (*ParseResult, error) {
	var out ParseResult
	body := map[string]interface{}{
		"text": text,
	}
	if err := m.post(ctx, "/model/parse", body, &out); err != nil {
		return nil, err
	}
	out.Text = text
	return &out, nil
}

func (m *serverModel) PredictNextAction(ctx context.Context, history []ContextStep) (*ActionPrediction, error) {
	var out ActionPrediction
	body := map[string]interface{}{
		"history": history,
	}
	if err := m.post(ctx, "/model/predict", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *serverModel) Extractors() []string           { return m.extractors }
func (m *serverModel) PretrainedExtractors() []string { return m.pretrained }
func (m *serverModel) Language() string               { return m.language }

// post sends one JSON request with a bounded retry on transient failures.
func (m *serverModel) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, _ := json.Marshal(body)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < maxRequestAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ErrModelServerTimeout
			}
		}

		req, err := http.NewRequest("POST", m.baseURL+path, bytes.NewBuffer(payload))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrModelServerFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, lastErr = m.client.DoWithContext(ctx, req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return ErrModelServerTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrModelServerFailed, lastErr)
	}
	if resp == nil {
		return fmt.Errorf("%w: no successful response after retries", ErrModelServerFailed)
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode error: %v", ErrModelServerFailed, err)
	}
	return nil
}
