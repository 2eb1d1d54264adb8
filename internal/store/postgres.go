// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"modeltest-workers/internal/models"
)

// PostgresStore is the TrainingStore implementation over the bot-management
// database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) IntentsWithExamples(ctx context.Context, botID string) ([]models.IntentExamples, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.name, e.text, e.entities
		FROM intents i
		LEFT JOIN training_examples e
		  ON e.bot_id = i.bot_id AND e.intent = i.name
		WHERE i.bot_id = $1 AND i.status = TRUE
		ORDER BY i.name, e.id`, botID)
	if err != nil {
		return nil, fmt.Errorf("query intents: %w", err)
	}
	defer rows.Close()

	byIntent := map[string]*models.IntentExamples{}
	var order []string

	for rows.Next() {
		var intent string
		var text sql.NullString
		var entitiesJSON sql.NullString

		if err := rows.Scan(&intent, &text, &entitiesJSON); err != nil {
			return nil, fmt.Errorf("scan training example: %w", err)
		}

		group, ok := byIntent[intent]
		if !ok {
			group = &models.IntentExamples{Intent: intent}
			byIntent[intent] = group
			order = append(order, intent)
		}

		if !text.Valid || text.String == "" {
			continue
		}

		example := models.TrainingExample{Intent: intent, Text: text.String}
		if entitiesJSON.Valid && entitiesJSON.String != "" {
			if err := json.Unmarshal([]byte(entitiesJSON.String), &example.Entities); err != nil {
				return nil, fmt.Errorf("decode entities for intent %s: %w", intent, err)
			}
		}
		group.Examples = append(group.Examples, example)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.IntentExamples, 0, len(order))
	for _, name := range order {
		out = append(out, *byIntent[name])
	}
	return out, nil
}

func (s *PostgresStore) Stories(ctx context.Context, botID string) ([]models.Story, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, steps
		FROM stories
		WHERE bot_id = $1 AND status = TRUE
		ORDER BY name`, botID)
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		var story models.Story
		var stepsJSON string
		if err := rows.Scan(&story.Name, &stepsJSON); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		if err := json.Unmarshal([]byte(stepsJSON), &story.Steps); err != nil {
			return nil, fmt.Errorf("decode steps for story %s: %w", story.Name, err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stories, nil
}

func (s *PostgresStore) EntitySynonyms(ctx context.Context, botID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value, synonyms
		FROM entity_synonyms
		WHERE bot_id = $1`, botID)
	if err != nil {
		return nil, fmt.Errorf("query synonyms: %w", err)
	}
	defer rows.Close()

	synonyms := map[string][]string{}
	for rows.Next() {
		var value, listJSON string
		if err := rows.Scan(&value, &listJSON); err != nil {
			return nil, fmt.Errorf("scan synonym: %w", err)
		}
		var list []string
		if err := json.Unmarshal([]byte(listJSON), &list); err != nil {
			return nil, fmt.Errorf("decode synonyms for %s: %w", value, err)
		}
		synonyms[value] = list
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return synonyms, nil
}
