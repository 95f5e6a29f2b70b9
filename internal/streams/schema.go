package streams

import (
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// scoreSchemaJSON constrains incoming score messages: the pipeline is an
// external producer, so its payloads are validated before touching the
// database.
const scoreSchemaJSON = `{
	"type": "object",
	"required": ["entry_id", "score"],
	"properties": {
		"entry_id": {"type": "integer", "minimum": 1},
		"score": {"type": "number", "minimum": -1, "maximum": 1}
	},
	"additionalProperties": false
}`

var scoreSchema = mustCompileScoreSchema()

func mustCompileScoreSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(scoreSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid sentiment score schema: %v", err))
	}
	return schema
}

// ValidateScorePayload checks a decoded score message against the schema.
func ValidateScorePayload(payload map[string]interface{}) error {
	result := scoreSchema.Validate(payload)
	if result.IsValid() {
		return nil
	}

	var msgs []string
	for field, evalErr := range result.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, evalErr.Error()))
	}
	return fmt.Errorf("score message failed validation: %s", strings.Join(msgs, "; "))
}
