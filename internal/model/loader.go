// internal/model/loader.go
package model

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modeltest-workers/internal/common/logger"
)

// ErrModelNotFound signals that no trained model artifact exists for a bot.
var ErrModelNotFound = errors.New("model not found")

// ServerLoader resolves model artifacts from a per-bot directory tree and
// loads them into a remote model server.
type ServerLoader struct {
	ModelDir string
	BaseURL  string
	Timeout  time.Duration
	Logger   logger.Logger
}

func NewServerLoader(modelDir, baseURL string, timeout time.Duration, log logger.Logger) *ServerLoader {
	return &ServerLoader{
		ModelDir: modelDir,
		BaseURL:  baseURL,
		Timeout:  timeout,
		Logger:   log,
	}
}

// LatestModel scans models/<botID> and returns the most recently written
// model archive.
func (l *ServerLoader) LatestModel(botID string) (string, error) {
	dir := filepath.Join(l.ModelDir, botID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrModelNotFound
		}
		return "", err
	}

	var latest string
	var latestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tar.gz") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = filepath.Join(dir, entry.Name())
			latestMod = info.ModTime()
		}
	}

	if latest == "" {
		return "", ErrModelNotFound
	}
	return latest, nil
}

// Load asks the model server to activate the artifact and fetches its
// pipeline metadata. The returned interpreter and agent share one server
// session.
func (l *ServerLoader) Load(ctx context.Context, modelPath string) (Interpreter, Agent, error) {
	srv := newServerModel(l.BaseURL, modelPath, l.Timeout, l.Logger)
	if err := srv.activate(ctx); err != nil {
		return nil, nil, err
	}
	return srv, srv, nil
}
