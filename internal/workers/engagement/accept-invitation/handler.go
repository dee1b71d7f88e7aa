package acceptinvitation

import (
	"context"

	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/orchestrator"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "accept-invitation"

type Saga interface {
	AcceptInvitation(ctx context.Context, actor identity.Actor, invitationID string) (*orchestrator.EngagementResult, error)
}

// Handler lets the invited freelancer accept an invitation and join the
// job's roster.
type Handler struct {
	saga   Saga
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(cfg *Config, saga Saga, log logger.Logger, opts ...camunda.RunnerOption) *Handler {
	runner := camunda.NewJobRunner(TaskType, cfg.Worker, log, opts...)
	return &Handler{
		saga:   saga,
		runner: runner,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, func(ctx context.Context, variables string) (interface{}, error) {
		input, err := parseInput(variables)
		if err != nil {
			return nil, err
		}
		return h.Execute(ctx, input)
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	actor, err := identity.Parse(input.ActorID)
	if err != nil {
		return nil, err
	}

	res, err := h.saga.AcceptInvitation(ctx, actor, input.InvitationID)
	if err != nil {
		return nil, err
	}

	if !res.Appended {
		h.logger.Debug("freelancer was already on the roster", map[string]interface{}{
			"jobId":        res.JobID,
			"invitationId": input.InvitationID,
		})
	}
	return &Output{
		JobID:        res.JobID,
		FreelancerID: res.FreelancerID,
		Appended:     res.Appended,
	}, nil
}
