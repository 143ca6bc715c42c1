// Package schemas validates engine JSON output before it is decoded into the
// data model. A schema failure means the model returned a malformed payload.
package schemas

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// TailoringResultSchema constrains the engine's optimize response. Scores are
// deliberately NOT range-limited here: out-of-range values must surface as a
// contract violation with the actual value, not as a schema mismatch.
const TailoringResultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["original_score", "optimized_score", "optimized_resume", "matched_requirements"],
  "properties": {
    "original_score": {"type": "integer"},
    "optimized_score": {"type": "integer"},
    "matched_requirements": {"type": "array", "items": {"type": "string"}},
    "optimized_resume": {
      "type": "object",
      "required": ["sections"],
      "properties": {
        "name": {"type": "string"},
        "headline": {"type": "string"},
        "sections": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["heading", "items"],
            "properties": {
              "heading": {"type": "string"},
              "items": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["text", "change"],
                  "properties": {
                    "text": {"type": "string"},
                    "change": {"enum": ["unchanged", "inserted", "replaced"]},
                    "original": {"type": "string"}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// FieldError is a single validation failure at a field path.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates schema failures.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("schema validation failed:")
	for _, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf(" %s: %s;", err.Field, err.Message))
	}
	return strings.TrimRight(sb.String(), ";")
}

// ValidateJSONString validates JSON content against a schema string.
func ValidateJSONString(schema, document string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(document),
	)
	if err != nil {
		return fmt.Errorf("schema validation could not run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return ve
}

// ValidateTailoringResult checks an engine optimize payload.
func ValidateTailoringResult(document string) error {
	return ValidateJSONString(TailoringResultSchema, document)
}
