package applytojob

import (
	"context"

	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "apply-to-job"

type Saga interface {
	ApplyToJob(ctx context.Context, actor identity.Actor, jobID string) (*models.Applier, error)
}

type Handler struct {
	saga   Saga
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(cfg *Config, saga Saga, log logger.Logger, opts ...camunda.RunnerOption) *Handler {
	return &Handler{
		saga:   saga,
		runner: camunda.NewJobRunner(TaskType, cfg.Worker, log, opts...),
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

// Execute records the application. Applying twice completes the job with
// alreadyApplied set so the process can branch on it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	actor, err := identity.Parse(input.ActorID)
	if err != nil {
		return nil, err
	}

	applier, err := h.saga.ApplyToJob(ctx, actor, input.JobID)
	if errors.HasCode(err, errors.ErrCodeDuplicateApplication) {
		h.logger.Info("Application already recorded", map[string]interface{}{
			"jobId":  input.JobID,
			"userId": actor.UserID,
		})
		return &Output{AlreadyApplied: true}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Output{Applied: true, AppliedAt: applier.AppliedAt}, nil
}
