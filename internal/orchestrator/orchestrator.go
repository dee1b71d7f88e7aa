// Package orchestrator implements the marketplace sagas. Each exported method
// is one business transaction: an ordered sequence of calls to services that
// share no transaction. A step runs only when the previous one succeeded;
// completed steps are never undone. When a saga stops after committing some
// steps it records the owed step in the reconciliation ledger and reports
// RECONCILIATION_NEEDED.
package orchestrator

import (
	"context"
	"time"

	"ergasia-workers/internal/audit"
	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/common/metrics"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/models"
	"ergasia-workers/internal/reconcile"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ==========================
// Ports
// ==========================

type JobService interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	// GetJobFresh reads past any cache.
	GetJobFresh(ctx context.Context, jobID string) (*models.Job, error)
	SetStatus(ctx context.Context, jobID string, status models.JobStatus) error
}

type ApplierService interface {
	Apply(ctx context.Context, userID, jobID string) (*models.Applier, error)
	HasApplied(ctx context.Context, userID, jobID string) (bool, error)
	Accept(ctx context.Context, userID, jobID string) error
	Reject(ctx context.Context, userID, jobID string) error
}

type InvitationService interface {
	FindByJobAndUser(ctx context.Context, jobID, userID string) (*models.Invitation, error)
	Get(ctx context.Context, invitationID string) (*models.Invitation, error)
	Create(ctx context.Context, jobID, inviterID, inviteeID string) (*models.Invitation, error)
	Accept(ctx context.Context, userID, invitationID string) error
	Reject(ctx context.Context, userID, invitationID string) error
}

// RosterService is the JobTransaction service: roster and escrow.
type RosterService interface {
	AppendFreelancer(ctx context.Context, jobID, userID string) error
	IsRegistered(ctx context.Context, jobID, userID string) (bool, error)
	ListAccepted(ctx context.Context, jobID string) ([]models.User, error)
	DebitForStart(ctx context.Context, jobID string, amount int64) (*models.Transaction, error)
	EscrowBalance(ctx context.Context, jobID string) (int64, error)
	PayoutFreelancers(ctx context.Context, jobID string) (*models.Payout, error)
}

type SubmissionService interface {
	Create(ctx context.Context, in models.NewSubmission) (*models.Submission, error)
	Get(ctx context.Context, submissionID string) (*models.Submission, error)
	UpdateStatus(ctx context.Context, submissionID string, status models.SubmissionStatus, rejectMessage string) error
}

type InboxService interface {
	Create(ctx context.Context, notice models.Notice) (*models.InboxMessage, error)
	MarkRead(ctx context.Context, userID, inboxID string) error
	ListByUser(ctx context.Context, userID string) ([]models.InboxMessage, error)
}

// Ledger is the reconciliation record store.
type Ledger interface {
	Open(ctx context.Context, rec reconcile.Record) (*reconcile.Record, error)
	Get(ctx context.Context, id string) (*reconcile.Record, error)
	FindOpen(ctx context.Context, kind reconcile.Kind, jobID, subjectID string) (*reconcile.Record, error)
	ListOpen(ctx context.Context, limit int) ([]reconcile.Record, error)
	Resolve(ctx context.Context, id, resolution string) error
	MarkManual(ctx context.Context, id, reason string) error
	RecordAttempt(ctx context.Context, id, lastError string) (int, error)
}

type Auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

type Alerter interface {
	ReconciliationOpened(ctx context.Context, rec reconcile.Record) error
	ReconciliationEscalated(ctx context.Context, rec reconcile.Record, reason string) error
}

// Publisher fans a stored inbox message out to other consumers.
type Publisher interface {
	Publish(ctx context.Context, msg models.InboxMessage) error
}

// ==========================
// Orchestrator
// ==========================

type Deps struct {
	Jobs        JobService
	Appliers    ApplierService
	Invitations InvitationService
	Roster      RosterService
	Submissions SubmissionService
	Inbox       InboxService
	Ledger      Ledger

	// Optional.
	Auditor   Auditor
	Alerter   Alerter
	Publisher Publisher

	Logger logger.Logger
}

type Config struct {
	// MaxReplayAttempts moves a record to manual after this many failed
	// replays.
	MaxReplayAttempts int
}

type Orchestrator struct {
	jobs        JobService
	appliers    ApplierService
	invitations InvitationService
	roster      RosterService
	submissions SubmissionService
	inbox       InboxService
	ledger      Ledger
	auditor     Auditor
	alerter     Alerter
	notifier    *Notifier
	tracer      trace.Tracer
	logger      logger.Logger
	config      Config
}

func New(deps Deps, cfg Config) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if cfg.MaxReplayAttempts <= 0 {
		cfg.MaxReplayAttempts = 5
	}
	auditor := deps.Auditor
	if auditor == nil {
		auditor = nopAuditor{}
	}
	alerter := deps.Alerter
	if alerter == nil {
		alerter = nopAlerter{}
	}

	return &Orchestrator{
		jobs:        deps.Jobs,
		appliers:    deps.Appliers,
		invitations: deps.Invitations,
		roster:      deps.Roster,
		submissions: deps.Submissions,
		inbox:       deps.Inbox,
		ledger:      deps.Ledger,
		auditor:     auditor,
		alerter:     alerter,
		notifier:    NewNotifier(deps.Inbox, deps.Publisher, log),
		tracer:      otel.Tracer("ergasia-workers/orchestrator"),
		logger:      log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		config:      cfg,
	}
}

// sagaRun is the per-invocation context handed to a saga body.
type sagaRun struct {
	name   string
	actor  identity.Actor
	jobID  string
	logger logger.Logger
}

// run executes body inside a span, then records metrics and the audit event.
func (o *Orchestrator) run(ctx context.Context, name string, actor identity.Actor, jobID string, body func(ctx context.Context, s *sagaRun) error) error {
	ctx, span := o.tracer.Start(ctx, "saga."+name, trace.WithAttributes(
		attribute.String("saga.name", name),
		attribute.String("saga.actor", actor.UserID),
		attribute.String("saga.job_id", jobID),
	))
	defer span.End()

	s := &sagaRun{
		name:  name,
		actor: actor,
		logger: o.logger.WithFields(map[string]interface{}{
			"saga":    name,
			"actorId": actor.UserID,
		}),
	}
	s.setJob(jobID)

	start := time.Now()
	var err error
	if actor.UserID == "" {
		err = errors.NewForbiddenError("missing acting user id")
	} else {
		err = body(ctx, s)
	}
	elapsed := time.Since(start)

	outcome := "OK"
	message := ""
	if err != nil {
		outcome = string(errors.CodeOf(err))
		message = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}

	metrics.SagaOutcomes.WithLabelValues(name, outcome).Inc()
	metrics.SagaDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	o.auditor.Record(ctx, audit.Event{
		Saga:       name,
		ActorID:    actor.UserID,
		JobID:      s.jobID,
		Outcome:    outcome,
		Message:    message,
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	})

	fields := map[string]interface{}{"outcome": outcome, "durationMs": elapsed.Milliseconds()}
	switch {
	case err == nil:
		s.logger.Info("Saga completed", fields)
	case errors.HasCode(err, errors.ErrCodeReconciliationNeeded) || errors.IsTransient(err):
		fields["error"] = message
		s.logger.Error("Saga stopped", fields)
	default:
		fields["error"] = message
		s.logger.Warn("Saga rejected", fields)
	}
	return err
}

// ownedJob loads the job and requires actor to own it.
func (o *Orchestrator) ownedJob(ctx context.Context, actor identity.Actor, jobID string) (*models.Job, error) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job, requireOwner(job, actor)
}

// ownedJobFresh is ownedJob without the cache, for guards before a debit or
// payout.
func (o *Orchestrator) ownedJobFresh(ctx context.Context, actor identity.Actor, jobID string) (*models.Job, error) {
	job, err := o.jobs.GetJobFresh(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job, requireOwner(job, actor)
}

func requireOwner(job *models.Job, actor identity.Actor) error {
	if !job.OwnedBy(actor.UserID) {
		return errors.NewForbiddenError("only the job owner can do this")
	}
	return nil
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, audit.Event) {}

type nopAlerter struct{}

func (nopAlerter) ReconciliationOpened(context.Context, reconcile.Record) error { return nil }

func (nopAlerter) ReconciliationEscalated(context.Context, reconcile.Record, string) error {
	return nil
}

// setJob records the job once a saga learns it from another resource. The
// first non-empty id wins.
func (s *sagaRun) setJob(jobID string) {
	if jobID == "" || s.jobID != "" {
		return
	}
	s.jobID = jobID
	s.logger = s.logger.WithFields(map[string]interface{}{"jobId": jobID})
}
