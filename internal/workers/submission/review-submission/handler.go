package reviewsubmission

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

const TaskType = "review-submission"

type Saga interface {
	ReviewSubmission(ctx context.Context, actor identity.Actor, submissionID string, decision models.SubmissionStatus, rejectMessage string) (*models.Submission, error)
}

// Handler records the owner's accept or reject decision on a submission.
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
	decision, err := models.ParseSubmissionStatus(input.Decision)
	if err != nil || !decision.Terminal() {
		return nil, errors.NewValidationError("decision must be Accepted or Rejected")
	}

	sub, err := h.saga.ReviewSubmission(ctx, actor, input.SubmissionID, decision, input.RejectMessage)
	if err != nil {
		return nil, err
	}
	return &Output{SubmissionID: sub.ID, SubmissionStatus: string(sub.Status)}, nil
}
