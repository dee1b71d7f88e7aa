package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/models"
	"ergasia-workers/internal/reconcile"
)

// EngagementResult describes a freelancer joining a job's roster.
type EngagementResult struct {
	JobID        string `json:"jobId"`
	FreelancerID string `json:"freelancerId"`
	// Appended is false when the freelancer was already on the roster.
	Appended bool `json:"appended"`
}

// ApplyToJob records the actor's application. A repeat application fails with
// the informational DUPLICATE_APPLICATION.
func (o *Orchestrator) ApplyToJob(ctx context.Context, actor identity.Actor, jobID string) (*models.Applier, error) {
	var out *models.Applier
	err := o.run(ctx, "ApplyToJob", actor, jobID, func(ctx context.Context, s *sagaRun) error {
		job, err := o.jobs.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != models.JobStatusStart {
			return errors.NewInvalidStateError("This job is no longer accepting applications",
				fmt.Sprintf("job %s is %s", jobID, job.Status))
		}
		if job.OwnedBy(actor.UserID) {
			return errors.NewForbiddenError("owners cannot apply to their own job")
		}

		applier, err := o.appliers.Apply(ctx, actor.UserID, jobID)
		if errors.HasCode(err, errors.ErrCodeDuplicateApplication) {
			return errors.NewDuplicateApplicationError(actor.UserID, jobID)
		}
		if err != nil {
			return err
		}
		out = applier
		return nil
	})
	return out, err
}

// InviteFreelancer creates an invitation unless a non-rejected one already
// exists for the pair.
func (o *Orchestrator) InviteFreelancer(ctx context.Context, actor identity.Actor, jobID, freelancerID string) (*models.Invitation, error) {
	var out *models.Invitation
	err := o.run(ctx, "InviteFreelancer", actor, jobID, func(ctx context.Context, s *sagaRun) error {
		freelancerID = strings.TrimSpace(freelancerID)
		if freelancerID == "" {
			return errors.NewValidationError("freelancerId is required")
		}
		if actor.Is(freelancerID) {
			return errors.NewValidationError("owners cannot invite themselves")
		}

		job, err := o.ownedJob(ctx, actor, jobID)
		if err != nil {
			return err
		}
		if job.Status == models.JobStatusFinished {
			return errors.NewInvalidStateError("This job is already finished",
				fmt.Sprintf("job %s is %s", jobID, job.Status))
		}

		existing, err := o.invitations.FindByJobAndUser(ctx, jobID, freelancerID)
		if err != nil {
			return err
		}
		if existing.Active() {
			return errors.NewDuplicateInvitationError(jobID, freelancerID)
		}

		inv, err := o.invitations.Create(ctx, jobID, actor.UserID, freelancerID)
		if err != nil {
			return err
		}
		out = inv

		o.notifier.Notify(ctx, models.Notice{
			SenderID:   actor.UserID,
			ReceiverID: freelancerID,
			JobID:      jobID,
			Category:   models.InboxInvitation,
			Action:     models.ActionRequest,
		})
		return nil
	})
	return out, err
}

// AcceptInvitation marks the invitation accepted, then appends the invitee to
// the roster. Repeating it is safe: an accepted invitation is not accepted
// again and a rostered freelancer is not appended again.
func (o *Orchestrator) AcceptInvitation(ctx context.Context, actor identity.Actor, invitationID string) (*EngagementResult, error) {
	var out *EngagementResult
	err := o.run(ctx, "AcceptInvitation", actor, "", func(ctx context.Context, s *sagaRun) error {
		inv, err := o.invitations.Get(ctx, invitationID)
		if err != nil {
			return err
		}
		s.setJob(inv.JobID)

		if !actor.Is(inv.InviteeID) {
			return errors.NewForbiddenError("only the invited freelancer can accept")
		}
		if inv.IsRejected {
			return errors.NewInvalidStateError("This invitation was rejected",
				fmt.Sprintf("invitation %s is rejected", invitationID))
		}

		freshAccept := !inv.IsAccepted
		if freshAccept {
			if err := o.invitations.Accept(ctx, actor.UserID, invitationID); err != nil {
				return err
			}
		}

		appended, err := o.appendToRoster(ctx, s, inv.JobID, actor.UserID)
		if err != nil {
			return err
		}
		out = &EngagementResult{JobID: inv.JobID, FreelancerID: actor.UserID, Appended: appended}

		if freshAccept || appended {
			o.notifier.Notify(ctx, models.Notice{
				SenderID:   actor.UserID,
				ReceiverID: inv.InviterID,
				JobID:      inv.JobID,
				Category:   models.InboxInvitation,
				Action:     models.ActionAccepted,
			})
		}
		return nil
	})
	return out, err
}

// RejectInvitation rejects the invitation. It touches no other service.
func (o *Orchestrator) RejectInvitation(ctx context.Context, actor identity.Actor, invitationID string) error {
	return o.run(ctx, "RejectInvitation", actor, "", func(ctx context.Context, s *sagaRun) error {
		inv, err := o.invitations.Get(ctx, invitationID)
		if err != nil {
			return err
		}
		s.setJob(inv.JobID)

		if !actor.Is(inv.InviteeID) {
			return errors.NewForbiddenError("only the invited freelancer can reject")
		}
		if inv.IsRejected {
			return nil
		}
		if inv.IsAccepted {
			return errors.NewInvalidStateError("This invitation was already accepted",
				fmt.Sprintf("invitation %s is accepted", invitationID))
		}
		return o.invitations.Reject(ctx, actor.UserID, invitationID)
	})
}

// AcceptApplier accepts an application and appends the applicant to the
// roster, under the same capacity policy as AcceptInvitation.
func (o *Orchestrator) AcceptApplier(ctx context.Context, actor identity.Actor, jobID, freelancerID string) (*EngagementResult, error) {
	var out *EngagementResult
	err := o.run(ctx, "AcceptApplier", actor, jobID, func(ctx context.Context, s *sagaRun) error {
		job, err := o.ownedJob(ctx, actor, jobID)
		if err != nil {
			return err
		}
		if job.Status == models.JobStatusFinished {
			return errors.NewInvalidStateError("This job is already finished",
				fmt.Sprintf("job %s is %s", jobID, job.Status))
		}

		applied, err := o.appliers.HasApplied(ctx, freelancerID, jobID)
		if err != nil {
			return err
		}
		if !applied {
			return errors.NewResourceNotFoundError("applier",
				fmt.Sprintf("user %s has not applied to job %s", freelancerID, jobID))
		}

		if err := o.appliers.Accept(ctx, freelancerID, jobID); err != nil {
			return err
		}

		appended, err := o.appendToRoster(ctx, s, jobID, freelancerID)
		if err != nil {
			return err
		}
		out = &EngagementResult{JobID: jobID, FreelancerID: freelancerID, Appended: appended}

		o.notifier.Notify(ctx, models.Notice{
			SenderID:   actor.UserID,
			ReceiverID: freelancerID,
			JobID:      jobID,
			Category:   models.InboxApplication,
			Action:     models.ActionAccepted,
		})
		return nil
	})
	return out, err
}

// RejectApplier rejects an application and tells the applicant.
func (o *Orchestrator) RejectApplier(ctx context.Context, actor identity.Actor, jobID, freelancerID string) error {
	return o.run(ctx, "RejectApplier", actor, jobID, func(ctx context.Context, s *sagaRun) error {
		if _, err := o.ownedJob(ctx, actor, jobID); err != nil {
			return err
		}
		if err := o.appliers.Reject(ctx, freelancerID, jobID); err != nil {
			return err
		}

		o.notifier.Notify(ctx, models.Notice{
			SenderID:   actor.UserID,
			ReceiverID: freelancerID,
			JobID:      jobID,
			Category:   models.InboxApplication,
			Action:     models.ActionRejected,
		})
		return nil
	})
}

// appendToRoster is the second step of both acceptance paths. It runs after
// the acceptance committed, so every failure leaves a reconciliation record.
func (o *Orchestrator) appendToRoster(ctx context.Context, s *sagaRun, jobID, freelancerID string) (bool, error) {
	owed := reconcile.Record{Kind: reconcile.KindRosterAppend, JobID: jobID, SubjectID: freelancerID}

	registered, err := o.roster.IsRegistered(ctx, jobID, freelancerID)
	if err != nil {
		_, recErr := o.openRecord(ctx, s, owed, err)
		return false, recErr
	}
	if registered {
		o.resolveIfOpen(ctx, s, reconcile.KindRosterAppend, jobID, freelancerID, "freelancer already on roster")
		return false, nil
	}

	err = o.roster.AppendFreelancer(ctx, jobID, freelancerID)
	switch {
	case err == nil:
		o.resolveIfOpen(ctx, s, reconcile.KindRosterAppend, jobID, freelancerID, "freelancer appended")
		return true, nil

	case errors.HasCode(err, errors.ErrCodeSlotsFull):
		owed.Status = reconcile.StatusManual
		slotsErr := errors.NewSlotsFullError(jobID)
		if rec, _ := o.openRecord(ctx, s, owed, err); rec != nil {
			slotsErr.WithMetadata("reconciliationId", rec.ID)
		}
		return false, slotsErr

	case !errors.IsTransient(err):
		owed.Status = reconcile.StatusManual
		_, recErr := o.openRecord(ctx, s, owed, err)
		return false, recErr

	default:
		_, recErr := o.openRecord(ctx, s, owed, err)
		return false, recErr
	}
}
