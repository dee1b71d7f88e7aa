package reconcilesaga

import (
	"context"

	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/orchestrator"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "reconcile-saga"

type Saga interface {
	ReconcilePending(ctx context.Context, limit int) (*orchestrator.ReconcileSummary, error)
	ReplayRecord(ctx context.Context, recordID string) (orchestrator.Outcome, error)
}

// Handler replays steps owed by sagas that ended in RECONCILIATION_NEEDED.
// It runs as the system actor, so the job carries no actorId.
type Handler struct {
	saga      Saga
	batchSize int
	runner    *camunda.JobRunner
	logger    logger.Logger
}

func NewHandler(cfg *Config, saga Saga, log logger.Logger, opts ...camunda.RunnerOption) *Handler {
	return &Handler{
		saga:      saga,
		batchSize: cfg.BatchSize,
		runner:    camunda.NewJobRunner(TaskType, cfg.Worker, log, opts...),
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
	if input.RecordID != "" {
		outcome, err := h.saga.ReplayRecord(ctx, input.RecordID)
		if err != nil {
			return nil, err
		}
		h.logger.Info("Record replayed", map[string]interface{}{
			"recordId": input.RecordID,
			"outcome":  string(outcome),
		})
		return outputFor(outcome), nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = h.batchSize
	}
	summary, err := h.saga.ReconcilePending(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &Output{
		Scanned:   summary.Scanned,
		Resolved:  summary.Resolved,
		Dismissed: summary.Dismissed,
		Pending:   summary.Pending,
		Manual:    summary.Manual,
	}, nil
}

func outputFor(o orchestrator.Outcome) *Output {
	out := &Output{Outcome: string(o), Scanned: 1}
	switch o {
	case orchestrator.OutcomeResolved:
		out.Resolved = 1
	case orchestrator.OutcomeDismissed:
		out.Dismissed = 1
	case orchestrator.OutcomePending:
		out.Pending = 1
	case orchestrator.OutcomeManual:
		out.Manual = 1
	}
	return out
}
