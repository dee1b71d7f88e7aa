package orchestrator

import (
	"context"
	"fmt"

	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/models"
	"ergasia-workers/internal/reconcile"
)

type StartJobResult struct {
	JobID         string           `json:"jobId"`
	Status        models.JobStatus `json:"status"`
	TransactionID string           `json:"transactionId,omitempty"`
	// Replayed is true when this call only completed a step owed by an
	// earlier run.
	Replayed bool `json:"replayed"`
}

type FinishJobResult struct {
	JobID     string           `json:"jobId"`
	Status    models.JobStatus `json:"status"`
	Transfers int              `json:"transfers"`
	Replayed  bool             `json:"replayed"`
}

// StartJob debits amount into the job's escrow, then moves the job to Ongoing.
// The debit is never blindly repeated: when an earlier run left a record for
// this job, only the owed step is replayed.
func (o *Orchestrator) StartJob(ctx context.Context, actor identity.Actor, jobID string, amount int64) (*StartJobResult, error) {
	var out *StartJobResult
	err := o.run(ctx, "StartJob", actor, jobID, func(ctx context.Context, s *sagaRun) error {
		if amount <= 0 {
			return errors.NewValidationError("amount must be positive")
		}
		job, err := o.ownedJobFresh(ctx, actor, jobID)
		if err != nil {
			return err
		}

		replayed, err := o.replayOwedStart(ctx, s, jobID)
		if err != nil {
			return err
		}
		if replayed {
			out = &StartJobResult{JobID: jobID, Status: models.JobStatusOngoing, Replayed: true}
			o.notifyRoster(ctx, s, actor.UserID, jobID, models.ActionStarted)
			return nil
		}

		if job.Status != models.JobStatusStart {
			return errors.NewInvalidStateError("Only a job that has not started can be started",
				fmt.Sprintf("job %s is %s", jobID, job.Status))
		}

		// Step 1: debit.
		tx, err := o.roster.DebitForStart(ctx, jobID, amount)
		if err != nil {
			if !errors.IsTransient(err) {
				return err
			}
			landed, confirmErr := o.debitLanded(ctx, jobID, amount)
			if confirmErr != nil {
				_, recErr := o.openRecord(ctx, s, reconcile.Record{
					Kind:   reconcile.KindDebitUnknown,
					JobID:  jobID,
					Amount: amount,
				}, err)
				return recErr
			}
			if !landed {
				return err
			}
			s.logger.Warn("Debit reported failure but escrow holds the amount, continuing", map[string]interface{}{
				"error": err.Error(),
			})
		}

		// Step 2: status.
		if err := o.jobs.SetStatus(ctx, jobID, models.JobStatusOngoing); err != nil {
			_, recErr := o.openRecord(ctx, s, reconcile.Record{
				Kind:      reconcile.KindJobStatus,
				JobID:     jobID,
				SubjectID: string(models.JobStatusOngoing),
				Amount:    amount,
			}, err)
			return recErr
		}

		out = &StartJobResult{JobID: jobID, Status: models.JobStatusOngoing}
		if tx != nil {
			out.TransactionID = tx.ID
		}
		o.notifyRoster(ctx, s, actor.UserID, jobID, models.ActionStarted)
		return nil
	})
	return out, err
}

// replayOwedStart finishes a start left incomplete by an earlier run. It
// reports true when the job is now Ongoing. A dismissed unknown debit means a
// fresh debit is safe.
func (o *Orchestrator) replayOwedStart(ctx context.Context, s *sagaRun, jobID string) (bool, error) {
	for _, owed := range []struct {
		kind    reconcile.Kind
		subject string
	}{
		{reconcile.KindJobStatus, string(models.JobStatusOngoing)},
		{reconcile.KindDebitUnknown, ""},
	} {
		rec, err := o.ledger.FindOpen(ctx, owed.kind, jobID, owed.subject)
		if err != nil {
			return false, err
		}
		if rec == nil {
			continue
		}
		if rec.Status == reconcile.StatusManual {
			return false, errors.NewReconciliationNeededError(s.name, rec.ID, nil)
		}

		switch o.replay(ctx, s, *rec) {
		case OutcomeResolved:
			return true, nil
		case OutcomeDismissed:
			return false, nil
		default:
			return false, errors.NewReconciliationNeededError(s.name, rec.ID, nil)
		}
	}
	return false, nil
}

// debitLanded checks the escrow after an ambiguous debit failure.
func (o *Orchestrator) debitLanded(ctx context.Context, jobID string, amount int64) (bool, error) {
	balance, err := o.roster.EscrowBalance(ctx, jobID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// FinishJob moves an Ongoing job to Finished and releases the escrow to the
// roster. A payout that fails after the status change is owed, not undone.
func (o *Orchestrator) FinishJob(ctx context.Context, actor identity.Actor, jobID string) (*FinishJobResult, error) {
	var out *FinishJobResult
	err := o.run(ctx, "FinishJob", actor, jobID, func(ctx context.Context, s *sagaRun) error {
		job, err := o.ownedJobFresh(ctx, actor, jobID)
		if err != nil {
			return err
		}

		owed, err := o.ledger.FindOpen(ctx, reconcile.KindPayout, jobID, "")
		if err != nil {
			return err
		}
		if owed != nil {
			if owed.Status == reconcile.StatusManual {
				return errors.NewReconciliationNeededError(s.name, owed.ID, nil)
			}
			switch o.replay(ctx, s, *owed) {
			case OutcomeResolved:
				out = &FinishJobResult{JobID: jobID, Status: models.JobStatusFinished, Replayed: true}
				o.notifyRoster(ctx, s, actor.UserID, jobID, models.ActionFinished)
				return nil
			case OutcomeDismissed:
				// The status never landed; finish from scratch.
			default:
				return errors.NewReconciliationNeededError(s.name, owed.ID, nil)
			}
		}

		if job.Status != models.JobStatusOngoing {
			return errors.NewInvalidStateError("Only an ongoing job can be finished",
				fmt.Sprintf("job %s is %s", jobID, job.Status))
		}

		payoutOwed := reconcile.Record{Kind: reconcile.KindPayout, JobID: jobID}

		if err := o.jobs.SetStatus(ctx, jobID, models.JobStatusFinished); err != nil {
			if !errors.IsTransient(err) {
				return err
			}
			// The status may have landed; the replay checks before paying.
			_, recErr := o.openRecord(ctx, s, payoutOwed, err)
			return recErr
		}

		payout, err := o.roster.PayoutFreelancers(ctx, jobID)
		if err != nil {
			_, recErr := o.openRecord(ctx, s, payoutOwed, err)
			return recErr
		}

		out = &FinishJobResult{JobID: jobID, Status: models.JobStatusFinished}
		if payout != nil {
			out.Transfers = len(payout.Transfers)
		}
		o.notifyRoster(ctx, s, actor.UserID, jobID, models.ActionFinished)
		return nil
	})
	return out, err
}
