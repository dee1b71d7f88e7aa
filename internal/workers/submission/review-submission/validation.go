package reviewsubmission

import (
	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/validation"
)

const InputSchema = `{
	"type": "object",
	"properties": {
		"actorId":       {"type": "string", "minLength": 1},
		"submissionId":  {"type": "string", "minLength": 1},
		"decision":      {"type": "string", "enum": ["Accepted", "Rejected", "accepted", "rejected", "accept", "reject"]},
		"rejectMessage": {"type": "string", "maxLength": 2000}
	},
	"required": ["actorId", "submissionId", "decision"]
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
