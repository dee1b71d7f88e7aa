package orchestrator

import (
	"context"
	"fmt"

	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/common/metrics"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/models"
	"ergasia-workers/internal/reconcile"
)

// Outcome is the result of replaying one reconciliation record.
type Outcome string

const (
	// OutcomeResolved: the owed step is now done.
	OutcomeResolved Outcome = "resolved"
	// OutcomeDismissed: the earlier step never landed, nothing is owed.
	OutcomeDismissed Outcome = "dismissed"
	// OutcomePending: the replay failed and will be tried again.
	OutcomePending Outcome = "pending"
	// OutcomeManual: an operator must resolve the record.
	OutcomeManual Outcome = "manual"
)

// ReconcileSummary counts the outcomes of one reconciliation pass.
type ReconcileSummary struct {
	Scanned   int `json:"scanned"`
	Resolved  int `json:"resolved"`
	Dismissed int `json:"dismissed"`
	Pending   int `json:"pending"`
	Manual    int `json:"manual"`
}

func (r *ReconcileSummary) add(o Outcome) {
	switch o {
	case OutcomeResolved:
		r.Resolved++
	case OutcomeDismissed:
		r.Dismissed++
	case OutcomePending:
		r.Pending++
	case OutcomeManual:
		r.Manual++
	}
}

// ReconcilePending replays up to limit open records, oldest first. A failing
// record does not stop the pass.
func (o *Orchestrator) ReconcilePending(ctx context.Context, limit int) (*ReconcileSummary, error) {
	summary := &ReconcileSummary{}
	err := o.run(ctx, "ReconcilePending", identity.System, "", func(ctx context.Context, s *sagaRun) error {
		records, err := o.ledger.ListOpen(ctx, limit)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if ctx.Err() != nil {
				return errors.NewTimeoutError("reconcile", ctx.Err())
			}
			summary.Scanned++
			summary.add(o.replay(ctx, s, rec))
		}
		return nil
	})
	return summary, err
}

// ReplayRecord replays a single record by id.
func (o *Orchestrator) ReplayRecord(ctx context.Context, recordID string) (Outcome, error) {
	var outcome Outcome
	err := o.run(ctx, "ReplayRecord", identity.System, "", func(ctx context.Context, s *sagaRun) error {
		rec, err := o.ledger.Get(ctx, recordID)
		if err != nil {
			return err
		}
		s.setJob(rec.JobID)
		if rec.Status != reconcile.StatusOpen {
			return errors.NewInvalidStateError("Reconciliation record is not open",
				fmt.Sprintf("record %s is %s", rec.ID, rec.Status))
		}
		outcome = o.replay(ctx, s, *rec)
		return nil
	})
	return outcome, err
}

// replay re-runs the owed step of rec and moves the record accordingly.
func (o *Orchestrator) replay(ctx context.Context, s *sagaRun, rec reconcile.Record) Outcome {
	log := s.logger.WithFields(map[string]interface{}{
		"reconciliationId": rec.ID,
		"kind":             string(rec.Kind),
		"recordJobId":      rec.JobID,
	})

	outcome, note, err := o.replayStep(ctx, rec)
	if err != nil {
		if !errors.IsTransient(err) {
			o.escalate(ctx, s, rec, err.Error())
			return OutcomeManual
		}
		attempts, recErr := o.ledger.RecordAttempt(ctx, rec.ID, err.Error())
		if recErr != nil {
			log.Error("Failed to record replay attempt", map[string]interface{}{"error": recErr.Error()})
			return OutcomePending
		}
		rec.Attempts = attempts
		rec.LastError = err.Error()
		if attempts >= o.config.MaxReplayAttempts {
			o.escalate(ctx, s, rec, fmt.Sprintf("gave up after %d attempts: %s", attempts, err.Error()))
			return OutcomeManual
		}
		log.Warn("Replay failed, will retry", map[string]interface{}{"attempts": attempts, "error": err.Error()})
		return OutcomePending
	}

	if outcome == OutcomeManual {
		o.escalate(ctx, s, rec, note)
		return OutcomeManual
	}

	if err := o.ledger.Resolve(ctx, rec.ID, note); err != nil {
		log.Error("Failed to resolve reconciliation record", map[string]interface{}{"error": err.Error()})
		return OutcomePending
	}
	metrics.ReconciliationsClosed.WithLabelValues(string(rec.Kind), string(outcome)).Inc()
	log.Info("Reconciliation record closed", map[string]interface{}{"outcome": string(outcome), "resolution": note})
	return outcome
}

// replayStep performs the owed step. It returns the outcome and a resolution
// note, or an error when the step could not be completed.
func (o *Orchestrator) replayStep(ctx context.Context, rec reconcile.Record) (Outcome, string, error) {
	switch rec.Kind {
	case reconcile.KindRosterAppend:
		registered, err := o.roster.IsRegistered(ctx, rec.JobID, rec.SubjectID)
		if err != nil {
			return "", "", err
		}
		if registered {
			return OutcomeResolved, "freelancer already on roster", nil
		}
		err = o.roster.AppendFreelancer(ctx, rec.JobID, rec.SubjectID)
		if errors.HasCode(err, errors.ErrCodeSlotsFull) {
			return OutcomeManual, "roster is full, the accepted freelancer could not be added", nil
		}
		if err != nil {
			return "", "", err
		}
		return OutcomeResolved, "freelancer appended on replay", nil

	case reconcile.KindJobStatus:
		target, err := models.ParseJobStatus(rec.SubjectID)
		if err != nil {
			return OutcomeManual, fmt.Sprintf("unknown target status %q", rec.SubjectID), nil
		}
		job, err := o.jobs.GetJob(ctx, rec.JobID)
		if err != nil {
			return "", "", err
		}
		if job.Status == target {
			return OutcomeResolved, "job already in target status", nil
		}
		if err := o.jobs.SetStatus(ctx, rec.JobID, target); err != nil {
			return "", "", err
		}
		return OutcomeResolved, fmt.Sprintf("job moved to %s on replay", target), nil

	case reconcile.KindPayout:
		job, err := o.jobs.GetJobFresh(ctx, rec.JobID)
		if err != nil {
			return "", "", err
		}
		switch job.Status {
		case models.JobStatusOngoing:
			return OutcomeDismissed, "job never reached Finished, nothing to pay out", nil
		case models.JobStatusStart:
			return OutcomeManual, "payout owed for a job that has not started", nil
		}
		if _, err := o.roster.PayoutFreelancers(ctx, rec.JobID); err != nil {
			return "", "", err
		}
		return OutcomeResolved, "escrow released on replay", nil

	case reconcile.KindDebitUnknown:
		job, err := o.jobs.GetJobFresh(ctx, rec.JobID)
		if err != nil {
			return "", "", err
		}
		if job.Status != models.JobStatusStart {
			return OutcomeResolved, fmt.Sprintf("job already %s", job.Status), nil
		}
		balance, err := o.roster.EscrowBalance(ctx, rec.JobID)
		if err != nil {
			return "", "", err
		}
		if balance < rec.Amount {
			return OutcomeDismissed, "debit did not land", nil
		}
		if err := o.jobs.SetStatus(ctx, rec.JobID, models.JobStatusOngoing); err != nil {
			return "", "", err
		}
		return OutcomeResolved, "debit confirmed, job started on replay", nil
	}

	return OutcomeManual, fmt.Sprintf("unknown reconciliation kind %q", rec.Kind), nil
}

// openRecord stores an owed step and returns the RECONCILIATION_NEEDED error
// the saga reports. SLOTS_FULL records go straight to manual.
func (o *Orchestrator) openRecord(ctx context.Context, s *sagaRun, rec reconcile.Record, cause error) (*reconcile.Record, error) {
	if cause != nil {
		rec.LastError = cause.Error()
	}
	prior, err := o.ledger.FindOpen(ctx, rec.Kind, rec.JobID, rec.SubjectID)
	if err != nil {
		s.logger.Warn("Could not look up reconciliation record", map[string]interface{}{"error": err.Error()})
		prior = nil
	}

	stored, err := o.ledger.Open(ctx, rec)
	if err != nil {
		s.logger.Error("Failed to record reconciliation", map[string]interface{}{
			"kind":  string(rec.Kind),
			"cause": rec.LastError,
			"error": err.Error(),
		})
		return nil, errors.NewReconciliationNeededError(s.name, "", cause)
	}

	// A retry that lands on the same record in the same status has
	// already been alerted on.
	if prior != nil && prior.Status == stored.Status {
		s.logger.Debug("Reconciliation record already open", map[string]interface{}{
			"reconciliationId": stored.ID,
			"status":           string(stored.Status),
		})
		return stored, errors.NewReconciliationNeededError(s.name, stored.ID, cause)
	}

	metrics.ReconciliationsOpened.WithLabelValues(string(rec.Kind)).Inc()
	s.logger.Warn("Reconciliation record opened", map[string]interface{}{
		"reconciliationId": stored.ID,
		"kind":             string(stored.Kind),
		"status":           string(stored.Status),
	})

	var alertErr error
	if stored.Status == reconcile.StatusManual {
		alertErr = o.alerter.ReconciliationEscalated(ctx, *stored, rec.LastError)
	} else {
		alertErr = o.alerter.ReconciliationOpened(ctx, *stored)
	}
	if alertErr != nil {
		s.logger.Warn("Reconciliation alert failed", map[string]interface{}{"error": alertErr.Error()})
	}
	return stored, errors.NewReconciliationNeededError(s.name, stored.ID, cause)
}

// resolveIfOpen closes a record whose owed step a later saga run completed.
func (o *Orchestrator) resolveIfOpen(ctx context.Context, s *sagaRun, kind reconcile.Kind, jobID, subjectID, note string) {
	rec, err := o.ledger.FindOpen(ctx, kind, jobID, subjectID)
	if err != nil {
		s.logger.Warn("Could not look up reconciliation record", map[string]interface{}{"error": err.Error()})
		return
	}
	if rec == nil {
		return
	}
	if err := o.ledger.Resolve(ctx, rec.ID, note); err != nil {
		s.logger.Warn("Could not resolve reconciliation record", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.ReconciliationsClosed.WithLabelValues(string(kind), string(OutcomeResolved)).Inc()
}

func (o *Orchestrator) escalate(ctx context.Context, s *sagaRun, rec reconcile.Record, reason string) {
	if err := o.ledger.MarkManual(ctx, rec.ID, reason); err != nil {
		s.logger.Error("Failed to escalate reconciliation record", map[string]interface{}{
			"reconciliationId": rec.ID,
			"error":            err.Error(),
		})
		return
	}
	metrics.ReconciliationsClosed.WithLabelValues(string(rec.Kind), string(OutcomeManual)).Inc()
	rec.Status = reconcile.StatusManual
	if err := o.alerter.ReconciliationEscalated(ctx, rec, reason); err != nil {
		s.logger.Warn("Reconciliation alert failed", map[string]interface{}{"error": err.Error()})
	}
}
