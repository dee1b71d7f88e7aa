package acceptinvitation

import (
	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/validation"
)

const InputSchema = `{
	"type": "object",
	"properties": {
		"actorId":      {"type": "string", "minLength": 1},
		"invitationId": {"type": "string", "minLength": 1}
	},
	"required": ["actorId", "invitationId"]
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
