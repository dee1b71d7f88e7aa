package acceptapplier

import (
	"context"

	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/orchestrator"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "accept-applier"

type Saga interface {
	AcceptApplier(ctx context.Context, actor identity.Actor, jobID, freelancerID string) (*orchestrator.EngagementResult, error)
}

// Handler lets the job owner accept a pending applier onto the roster.
type Handler struct {
	saga   Saga
	runner *camunda.JobRunner
}

func NewHandler(cfg *Config, saga Saga, log logger.Logger, opts ...camunda.RunnerOption) *Handler {
	return &Handler{
		saga:   saga,
		runner: camunda.NewJobRunner(TaskType, cfg.Worker, log, opts...),
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
	res, err := h.saga.AcceptApplier(ctx, actor, input.JobID, input.FreelancerID)
	if err != nil {
		return nil, err
	}
	return &Output{ApplierAccepted: true, Appended: res.Appended}, nil
}
