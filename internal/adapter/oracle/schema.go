package oracle

import (
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// decisionSchema constrains what the oracle may return. Persona and mode
// names are validated against the live catalog separately; the schema only
// enforces shape.
const decisionSchema = `{
  "type": "object",
  "required": ["persona", "mode", "confidence"],
  "properties": {
    "persona": {"type": "string", "minLength": 1},
    "mode": {"type": "string", "minLength": 1},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "reasoning": {"type": "string"},
    "sub_tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["description", "persona", "mode", "query"],
        "properties": {
          "description": {"type": "string", "minLength": 1},
          "persona": {"type": "string", "minLength": 1},
          "mode": {"type": "string", "minLength": 1},
          "query": {"type": "string", "minLength": 1},
          "depends_on": {
            "type": "array",
            "items": {"type": "integer", "minimum": 0}
          }
        }
      }
    }
  }
}`

var compiledDecisionSchema = mustCompile(decisionSchema)

func mustCompile(src string) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile([]byte(src))
	if err != nil {
		panic(fmt.Sprintf("compile decision schema: %v", err))
	}
	return schema
}

// validateDecisionJSON checks parsed oracle output against the decision
// schema.
func validateDecisionJSON(data any) error {
	result := compiledDecisionSchema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("%s", result.Error())
	}
	return nil
}
