package createsubmission

import (
	"context"

	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "create-submission"

type Saga interface {
	CreateSubmission(ctx context.Context, actor identity.Actor, jobID string, file []byte, fileName, message string) (*models.Submission, error)
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	actor, err := identity.Parse(input.ActorID)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Creating submission", map[string]interface{}{
		"jobId":     input.JobID,
		"fileBytes": len(input.File),
	})
	sub, err := h.saga.CreateSubmission(ctx, actor, input.JobID, input.File, input.FileName, input.Message)
	if err != nil {
		return nil, err
	}
	return &Output{SubmissionID: sub.ID, SubmissionStatus: string(sub.Status)}, nil
}
