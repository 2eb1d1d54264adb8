package runmodeltest

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"modeltest-workers/internal/models"
)

// reportSchema is the contract every archived report must satisfy. It
// guards the archive against half-built reports being indexed after a
// refactoring slip.
const reportSchema = `{
	"type": "object",
	"required": ["run_id", "bot_id", "nlu", "stories", "started_at", "completed_at"],
	"properties": {
		"run_id": {"type": "string", "minLength": 1},
		"bot_id": {"type": "string", "minLength": 1},
		"nlu": {"type": "object"},
		"stories": {
			"type": "object",
			"required": ["precision", "f1", "accuracy", "is_end_to_end_evaluation"]
		},
		"started_at": {"type": "string"},
		"completed_at": {"type": "string"}
	}
}`

var reportSchemaLoader = gojsonschema.NewStringLoader(reportSchema)

// validateReport checks the assembled report against the archive schema.
func validateReport(report *models.TestReport) error {
	result, err := gojsonschema.Validate(reportSchemaLoader, gojsonschema.NewGoLoader(report))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("report schema violations: %s", strings.Join(problems, "; "))
}
