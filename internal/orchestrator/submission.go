package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/models"
)

// CreateSubmission stores a rostered freelancer's deliverable for an Ongoing
// job and tells the owner.
func (o *Orchestrator) CreateSubmission(ctx context.Context, actor identity.Actor, jobID string, file []byte, fileName, message string) (*models.Submission, error) {
	var out *models.Submission
	err := o.run(ctx, "CreateSubmission", actor, jobID, func(ctx context.Context, s *sagaRun) error {
		if len(file) == 0 {
			return errors.NewValidationError("file is required")
		}

		job, err := o.jobs.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status != models.JobStatusOngoing {
			return errors.NewInvalidStateError("Work can only be submitted for an ongoing job",
				fmt.Sprintf("job %s is %s", jobID, job.Status))
		}

		registered, err := o.roster.IsRegistered(ctx, jobID, actor.UserID)
		if err != nil {
			return err
		}
		if !registered {
			return errors.NewForbiddenError("only freelancers on the roster can submit work")
		}

		sub, err := o.submissions.Create(ctx, models.NewSubmission{
			JobID:    jobID,
			User:     models.User{ID: actor.UserID},
			File:     file,
			FileName: fileName,
			Message:  message,
		})
		if err != nil {
			return err
		}
		if sub.Status == "" {
			sub.Status = models.SubmissionWaiting
		}
		out = sub

		o.NotifySubmissionCreated(ctx, job.OwnerID, jobID, actor.UserID)
		return nil
	})
	return out, err
}

// NotifySubmissionCreated tells the owner that new work is waiting for review.
func (o *Orchestrator) NotifySubmissionCreated(ctx context.Context, ownerID, jobID, freelancerID string) {
	o.notifier.Notify(ctx, models.Notice{
		SenderID:   freelancerID,
		ReceiverID: ownerID,
		JobID:      jobID,
		Category:   models.InboxSubmission,
		Action:     models.ActionRequest,
	})
}

// ReviewSubmission records the owner's decision on a Waiting submission. A
// submission is reviewed at most once.
func (o *Orchestrator) ReviewSubmission(ctx context.Context, actor identity.Actor, submissionID string, decision models.SubmissionStatus, rejectMessage string) (*models.Submission, error) {
	var out *models.Submission
	err := o.run(ctx, "ReviewSubmission", actor, "", func(ctx context.Context, s *sagaRun) error {
		if !decision.Terminal() {
			return errors.NewValidationError(fmt.Sprintf("decision must be Accepted or Rejected, got %q", decision))
		}
		rejectMessage = strings.TrimSpace(rejectMessage)
		if decision == models.SubmissionRejected && rejectMessage == "" {
			return errors.NewValidationError("a rejection needs a message")
		}
		if decision == models.SubmissionAccepted {
			rejectMessage = ""
		}

		sub, err := o.submissions.Get(ctx, submissionID)
		if err != nil {
			return err
		}
		s.setJob(sub.JobID)

		if _, err := o.ownedJob(ctx, actor, sub.JobID); err != nil {
			return err
		}
		if sub.Status != models.SubmissionWaiting {
			return errors.NewInvalidStateError("This submission was already reviewed",
				fmt.Sprintf("submission %s is %s", submissionID, sub.Status))
		}

		err = o.submissions.UpdateStatus(ctx, submissionID, decision, rejectMessage)
		if errors.HasCode(err, errors.ErrCodeConflict) || errors.HasCode(err, errors.ErrCodeInvalidState) {
			return errors.NewInvalidStateError("This submission was already reviewed", err.Error())
		}
		if err != nil {
			return err
		}

		sub.Status = decision
		sub.RejectMessage = rejectMessage
		out = sub

		o.notifier.Notify(ctx, models.Notice{
			SenderID:   actor.UserID,
			ReceiverID: sub.User.ID,
			JobID:      sub.JobID,
			Category:   models.InboxSubmission,
			Action:     reviewAction(decision),
			Message:    rejectMessage,
		})
		return nil
	})
	return out, err
}

func reviewAction(decision models.SubmissionStatus) models.InboxAction {
	if decision == models.SubmissionAccepted {
		return models.ActionAccepted
	}
	return models.ActionRejected
}
