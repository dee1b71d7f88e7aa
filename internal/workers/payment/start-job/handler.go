package startjob

import (
	"context"

	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/orchestrator"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "start-job"

type Saga interface {
	StartJob(ctx context.Context, actor identity.Actor, jobID string, amount int64) (*orchestrator.StartJobResult, error)
}

// Handler debits the owner's wallet into escrow and starts the job.
//
// The runner is always non-idempotent: a failed job is thrown to the process
// instead of being retried by Zeebe, because a retry could debit twice. Owed
// steps are completed by reconcile-saga.
type Handler struct {
	saga   Saga
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(cfg *Config, saga Saga, log logger.Logger, opts ...camunda.RunnerOption) *Handler {
	opts = append(opts, camunda.NonIdempotent())
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

	res, err := h.saga.StartJob(ctx, actor, input.JobID, input.Amount)
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		h.logger.Info("Start completed from an earlier debit", map[string]interface{}{"jobId": res.JobID})
	}

	return &Output{
		JobStatus:     res.Status,
		TransactionID: res.TransactionID,
		StartReplayed: res.Replayed,
	}, nil
}
