package main

import (
	"fmt"

	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/config"
	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/orchestrator"
	"ergasia-workers/pkg/registry"

	acceptapplier "ergasia-workers/internal/workers/engagement/accept-applier"
	acceptinvitation "ergasia-workers/internal/workers/engagement/accept-invitation"
	applytojob "ergasia-workers/internal/workers/engagement/apply-to-job"
	invitefreelancer "ergasia-workers/internal/workers/engagement/invite-freelancer"
	rejectapplier "ergasia-workers/internal/workers/engagement/reject-applier"
	rejectinvitation "ergasia-workers/internal/workers/engagement/reject-invitation"
	markinboxread "ergasia-workers/internal/workers/inbox/mark-inbox-read"
	finishjob "ergasia-workers/internal/workers/payment/finish-job"
	startjob "ergasia-workers/internal/workers/payment/start-job"
	reconcilesaga "ergasia-workers/internal/workers/reconcile/reconcile-saga"
	createsubmission "ergasia-workers/internal/workers/submission/create-submission"
	reviewsubmission "ergasia-workers/internal/workers/submission/review-submission"
)

type handlerFactory func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler

// activity describes one job type served by this process.
type activity struct {
	taskType      string
	category      string
	displayName   string
	description   string
	inputSchema   string
	errorCodes    []errors.ErrorCode
	nonIdempotent bool
	newHandler    handlerFactory
}

var transportCodes = []errors.ErrorCode{errors.ErrCodeExternalService, errors.ErrCodeTimeout}

func codes(extra ...errors.ErrorCode) []errors.ErrorCode {
	base := []errors.ErrorCode{errors.ErrCodeValidationFailed, errors.ErrCodeForbidden, errors.ErrCodeReconciliationNeeded}
	return append(append(base, extra...), transportCodes...)
}

var activities = []activity{
	{
		taskType:    applytojob.TaskType,
		category:    "engagement",
		displayName: "Apply To Job",
		description: "Records a freelancer's application to an open job",
		inputSchema: applytojob.InputSchema,
		errorCodes:  codes(errors.ErrCodeInvalidState, errors.ErrCodeResourceNotFound),
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return applytojob.NewHandler(applytojob.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:    invitefreelancer.TaskType,
		category:    "engagement",
		displayName: "Invite Freelancer",
		description: "Sends the job owner's invitation to a freelancer",
		inputSchema: invitefreelancer.InputSchema,
		errorCodes:  codes(errors.ErrCodeDuplicateInvitation, errors.ErrCodeInvalidState, errors.ErrCodeResourceNotFound),
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return invitefreelancer.NewHandler(invitefreelancer.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:    acceptinvitation.TaskType,
		category:    "engagement",
		displayName: "Accept Invitation",
		description: "Accepts an invitation and adds the freelancer to the roster",
		inputSchema: acceptinvitation.InputSchema,
		errorCodes:  codes(errors.ErrCodeSlotsFull, errors.ErrCodeInvalidState, errors.ErrCodeResourceNotFound),
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return acceptinvitation.NewHandler(acceptinvitation.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:    rejectinvitation.TaskType,
		category:    "engagement",
		displayName: "Reject Invitation",
		description: "Declines an invitation",
		inputSchema: rejectinvitation.InputSchema,
		errorCodes:  codes(errors.ErrCodeInvalidState, errors.ErrCodeResourceNotFound),
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return rejectinvitation.NewHandler(rejectinvitation.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:    acceptapplier.TaskType,
		category:    "engagement",
		displayName: "Accept Applier",
		description: "Accepts a pending applier onto the job's roster",
		inputSchema: acceptapplier.InputSchema,
		errorCodes:  codes(errors.ErrCodeSlotsFull, errors.ErrCodeInvalidState, errors.ErrCodeResourceNotFound),
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return acceptapplier.NewHandler(acceptapplier.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:    rejectapplier.TaskType,
		category:    "engagement",
		displayName: "Reject Applier",
		description: "Rejects a pending applier",
		inputSchema: rejectapplier.InputSchema,
		errorCodes:  codes(errors.ErrCodeInvalidState, errors.ErrCodeResourceNotFound),
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return rejectapplier.NewHandler(rejectapplier.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:      startjob.TaskType,
		category:      "payment",
		displayName:   "Start Job",
		description:   "Debits the owner's wallet into escrow and starts the job",
		inputSchema:   startjob.InputSchema,
		errorCodes:    codes(errors.ErrCodeInsufficientFunds, errors.ErrCodeInvalidState, errors.ErrCodeResourceNotFound),
		nonIdempotent: true,
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return startjob.NewHandler(startjob.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:    finishjob.TaskType,
		category:    "payment",
		displayName: "Finish Job",
		description: "Finishes an ongoing job and pays the escrow out to the roster",
		inputSchema: finishjob.InputSchema,
		errorCodes:  codes(errors.ErrCodeInvalidState, errors.ErrCodeConflict, errors.ErrCodeResourceNotFound),
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return finishjob.NewHandler(finishjob.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:    createsubmission.TaskType,
		category:    "submission",
		displayName: "Create Submission",
		description: "Stores a rostered freelancer's work for review",
		inputSchema: createsubmission.InputSchema,
		errorCodes:  codes(errors.ErrCodeInvalidState, errors.ErrCodeInputParsingFailed, errors.ErrCodeResourceNotFound),
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return createsubmission.NewHandler(createsubmission.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:    reviewsubmission.TaskType,
		category:    "submission",
		displayName: "Review Submission",
		description: "Records the owner's accept or reject decision on a submission",
		inputSchema: reviewsubmission.InputSchema,
		errorCodes:  codes(errors.ErrCodeInvalidState, errors.ErrCodeResourceNotFound),
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return reviewsubmission.NewHandler(reviewsubmission.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:    markinboxread.TaskType,
		category:    "inbox",
		displayName: "Mark Inbox Read",
		description: "Marks one of the actor's inbox messages as read",
		inputSchema: markinboxread.InputSchema,
		errorCodes:  codes(errors.ErrCodeResourceNotFound),
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return markinboxread.NewHandler(markinboxread.LoadConfig(cfg), o, log, opts...)
		},
	},
	{
		taskType:    reconcilesaga.TaskType,
		category:    "reconcile",
		displayName: "Reconcile Saga",
		description: "Replays steps owed by sagas that need reconciliation",
		inputSchema: reconcilesaga.InputSchema,
		errorCodes:  []errors.ErrorCode{errors.ErrCodeValidationFailed, errors.ErrCodeInvalidState, errors.ErrCodeResourceNotFound, errors.ErrCodeDatabaseConnectionFailed, errors.ErrCodeQueryExecutionFailed},
		newHandler: func(cfg *config.Config, o *orchestrator.Orchestrator, log logger.Logger, opts ...camunda.RunnerOption) camunda.Handler {
			return reconcilesaga.NewHandler(reconcilesaga.LoadConfig(cfg), o, log, opts...)
		},
	},
}

// catalogue renders the served activities as a registry document.
func catalogue(cfg *config.Config) (*registry.ActivityRegistry, error) {
	entries := make([]registry.Activity, 0, len(activities))
	for _, a := range activities {
		schema, err := registry.SchemaMap(a.inputSchema)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.taskType, err)
		}
		wcfg := config.GetWorkerConfig(cfg, a.taskType)
		codeNames := make([]string, len(a.errorCodes))
		for i, c := range a.errorCodes {
			codeNames[i] = string(c)
		}
		retries := wcfg.MaxRetries
		if a.nonIdempotent {
			retries = 0
		}
		entries = append(entries, registry.Activity{
			ID:            a.taskType,
			DisplayName:   a.displayName,
			Description:   a.description,
			Category:      a.category,
			TaskType:      a.taskType,
			InputSchema:   schema,
			ErrorCodes:    codeNames,
			Timeout:       config.GetDuration(wcfg.Timeout).String(),
			Retries:       retries,
			NonIdempotent: a.nonIdempotent,
			Tags:          []string{a.category},
		})
	}

	version := cfg.App.Version
	if version == "" {
		version = "dev"
	}
	reg := registry.New(version, entries...)
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}
