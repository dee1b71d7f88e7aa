// Package validation checks Zeebe job variables against JSON schemas before
// they reach the orchestrator.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"ergasia-workers/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Compile parses a JSON schema document.
func Compile(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateInput validates raw job variables with detailed errors.
func (s *Schema) ValidateInput(variables string) *ValidationResult {
	if strings.TrimSpace(variables) == "" {
		variables = "{}"
	}
	return s.check(gojsonschema.NewStringLoader(variables))
}

// Validate validates already decoded variables.
func (s *Schema) Validate(variables map[string]interface{}) *ValidationResult {
	return s.check(gojsonschema.NewGoLoader(variables))
}

func (s *Schema) check(doc gojsonschema.JSONLoader) *ValidationResult {
	res, err := s.schema.Validate(doc)
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_JSON",
		}}}
	}

	out := &ValidationResult{Valid: res.Valid()}
	for _, e := range res.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(e),
			Message: e.Description(),
			Code:    codeOf(e.Type()),
		})
	}
	return out
}

// fieldOf names the offending property. Missing required properties are
// reported against their parent, so the property name is taken from the
// error details instead.
func fieldOf(e gojsonschema.ResultError) string {
	if e.Type() == "required" {
		if prop, ok := e.Details()["property"].(string); ok {
			if e.Field() == "(root)" {
				return prop
			}
			return e.Field() + "." + prop
		}
	}
	return e.Field()
}

func codeOf(errType string) string {
	switch errType {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "additional_property_not_allowed":
		return "EXTRA_FIELD"
	case "invalid_type":
		return "INVALID_TYPE"
	case "string_gte":
		return "MIN_LENGTH_VIOLATION"
	case "string_lte":
		return "MAX_LENGTH_VIOLATION"
	case "pattern":
		return "PATTERN_MISMATCH"
	case "enum":
		return "INVALID_ENUM_VALUE"
	case "number_gte", "number_gt":
		return "MINIMUM_VIOLATION"
	case "number_lte", "number_lt":
		return "MAXIMUM_VIOLATION"
	default:
		return strings.ToUpper(errType)
	}
}

// Err returns nil for a valid result, otherwise a VALIDATION_FAILED error
// listing every violation.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	stdErr := errors.NewValidationError(strings.Join(vr.GetErrorMessages(), "; "))
	stdErr.WithMetadata("fields", vr.fields())
	return stdErr
}

func (vr *ValidationResult) fields() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range vr.Errors {
		if !seen[e.Field] {
			seen[e.Field] = true
			out = append(out, e.Field)
		}
	}
	return out
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a field and its nested properties.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

var taskTypePattern = regexp.MustCompile(`^[a-z]+(-[a-z]+)+$`)

// ValidateActivityNaming checks that a task type is lower-case words joined
// by hyphens. Dots are not allowed: config keys are split on them.
func ValidateActivityNaming(taskType string) error {
	if !taskTypePattern.MatchString(taskType) {
		return fmt.Errorf("task type %q must be hyphenated lower-case words (e.g. accept-invitation)", taskType)
	}
	return nil
}
