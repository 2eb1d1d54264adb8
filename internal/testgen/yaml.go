// internal/testgen/yaml.go
package testgen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"modeltest-workers/internal/models"
)

const formatVersion = "3.0"

// nluFile is the on-disk shape of the NLU test corpus.
type nluFile struct {
	Version  string               `yaml:"version"`
	Language string               `yaml:"language,omitempty"`
	NLU      []models.TestMessage `yaml:"nlu"`
}

// storyFile is the on-disk shape of the story test script. IsTestStory
// marks the test-story dialect so downstream tooling does not mistake the
// file for training data.
type storyFile struct {
	Version     string         `yaml:"version"`
	IsTestStory bool           `yaml:"is_test_story,omitempty"`
	Stories     []models.Story `yaml:"stories"`
}

// WriteNLUFile serializes the NLU test corpus to path, tagged with the
// corpus language when one is configured.
func WriteNLUFile(path, language string, messages []models.TestMessage) error {
	return writeYAML(path, nluFile{Version: formatVersion, Language: language, NLU: messages})
}

// ReadNLUFile loads a serialized NLU test corpus.
func ReadNLUFile(path string) ([]models.TestMessage, error) {
	var file nluFile
	if err := readYAML(path, &file); err != nil {
		return nil, err
	}
	return file.NLU, nil
}

// WriteStoriesFile serializes the story corpus to path, using the
// test-story dialect when isTestStory is set.
func WriteStoriesFile(path string, stories []models.Story, isTestStory bool) error {
	return writeYAML(path, storyFile{Version: formatVersion, IsTestStory: isTestStory, Stories: stories})
}

// ReadStoriesFile loads a serialized story corpus.
func ReadStoriesFile(path string) ([]models.Story, bool, error) {
	var file storyFile
	if err := readYAML(path, &file); err != nil {
		return nil, false, err
	}
	return file.Stories, file.IsTestStory, nil
}

func writeYAML(path string, value interface{}) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
