package validation

import (
	"fmt"
	"strings"
	"sync"

	"applicant-gate/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// MaxAnswerLength bounds free-text answers; Telegram itself caps messages at 4096.
const MaxAnswerLength = 4096

// SubmissionSchema describes a complete questionnaire.
var SubmissionSchema = map[string]interface{}{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"properties": map[string]interface{}{
		"name":       freeText(),
		"tenure":     freeText(),
		"preference": freeText(),
		"motivation": freeText(),
		"feedback": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{models.ChoiceYes, models.ChoiceSometimes, models.ChoiceNo},
		},
		"confidentiality": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{models.ChoiceYes, models.ChoiceNo},
		},
	},
	"required": []interface{}{
		"name", "tenure", "preference", "motivation", "feedback", "confidentiality",
	},
	"additionalProperties": false,
}

func freeText() map[string]interface{} {
	return map[string]interface{}{
		"type":      "string",
		"minLength": 1,
		"maxLength": MaxAnswerLength,
		"pattern":   `\S`,
	}
}

var (
	compileOnce    sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

func submissionSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(SubmissionSchema))
	})
	return compiledSchema, compileErr
}

// ValidationResult lists every failed constraint.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateAnswers checks a complete answer set against SubmissionSchema.
func ValidateAnswers(answers models.Answers) (*ValidationResult, error) {
	schema, err := submissionSchema()
	if err != nil {
		return nil, fmt.Errorf("compile submission schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(answers.ToMap()))
	if err != nil {
		return nil, fmt.Errorf("validate submission: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// FormatValidationErrors formats validation errors into a readable string
func FormatValidationErrors(errors []ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	messages := make([]string, 0, len(errors))
	for _, err := range errors {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}
