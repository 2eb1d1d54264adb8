// internal/augment/markup.go
package augment

import (
	"fmt"
	"regexp"
	"strings"

	"modeltest-workers/internal/models"
)

// entityMarkup matches inline span annotations of the form [value](entity).
var entityMarkup = regexp.MustCompile(`\[([^\[\]]+)\]\(([^()]+)\)`)

// ExtractTextAndEntities strips inline span markup from an example and
// returns the plain text together with entity spans whose offsets index
// into the stripped text.
func ExtractTextAndEntities(example string) (string, []models.Entity) {
	matches := entityMarkup.FindAllStringSubmatchIndex(example, -1)
	if len(matches) == 0 {
		return example, nil
	}

	var plain strings.Builder
	var entities []models.Entity
	last := 0

	for _, m := range matches {
		plain.WriteString(example[last:m[0]])
		value := example[m[2]:m[3]]
		name := example[m[4]:m[5]]

		start := plain.Len()
		plain.WriteString(value)
		entities = append(entities, models.Entity{
			Start:  start,
			End:    start + len(value),
			Value:  value,
			Entity: name,
		})
		last = m[1]
	}
	plain.WriteString(example[last:])

	return plain.String(), entities
}

// Annotate embeds a span annotation for every occurrence of value in text.
func Annotate(text, value, entity string) string {
	return strings.ReplaceAll(text, value, fmt.Sprintf("[%s](%s)", value, entity))
}
