package createsubmission

import (
	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/validation"
)

const InputSchema = `{
	"type": "object",
	"properties": {
		"actorId":  {"type": "string", "minLength": 1},
		"jobId":    {"type": "string", "minLength": 1},
		"file":     {"type": "string", "minLength": 1},
		"fileName": {"type": "string", "maxLength": 255},
		"message":  {"type": "string", "maxLength": 2000}
	},
	"required": ["actorId", "jobId", "file"]
}`

var inputSchema = validation.MustCompile(InputSchema)

func parseInput(variables string) (*Input, error) {
	if err := inputSchema.ValidateInput(variables).Err(); err != nil {
		return nil, err
	}
	var input Input
	if err := camunda.DecodeVariables(variables, &input); err != nil {
		return nil, err
	}
	return &input, nil
}
