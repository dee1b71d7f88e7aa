package orchestrator

import (
	"context"
	"testing"

	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitted(t *testing.T) (*fixture, *models.Submission) {
	t.Helper()
	f := newFixture(t).withJob("job-1", models.JobStatusOngoing, 2).onRoster("job-1", aliceID)
	sub, err := f.orch.CreateSubmission(context.Background(), alice, "job-1", []byte("%PDF-1.4"), "logo.pdf", "first draft")
	require.NoError(t, err)
	return f, sub
}

func TestCreateSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("stores work and notifies owner", func(t *testing.T) {
		f, sub := submitted(t)

		assert.Equal(t, models.SubmissionWaiting, sub.Status)
		assert.Equal(t, aliceID, sub.User.ID)
		assert.Equal(t, "logo.pdf", sub.FileName)

		msgs := f.backend.inboxFor(ownerID)
		require.Len(t, msgs, 1)
		assert.Equal(t, models.InboxSubmission, msgs[0].Category)
		assert.Equal(t, models.ActionRequest, msgs[0].Action)
		assert.Equal(t, aliceID, msgs[0].SenderID)
	})

	t.Run("only rostered freelancers", func(t *testing.T) {
		f := newFixture(t).withJob("job-1", models.JobStatusOngoing, 2).onRoster("job-1", aliceID)

		_, err := f.orch.CreateSubmission(ctx, bob, "job-1", []byte("x"), "x.txt", "")
		assert.True(t, errors.HasCode(err, errors.ErrCodeForbidden))
		assert.Zero(t, f.backend.countCalls("CreateSubmission"))
	})

	t.Run("job must be ongoing", func(t *testing.T) {
		f := newFixture(t).withJob("job-1", models.JobStatusStart, 2).onRoster("job-1", aliceID)

		_, err := f.orch.CreateSubmission(ctx, alice, "job-1", []byte("x"), "x.txt", "")
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	})

	t.Run("file required", func(t *testing.T) {
		f := newFixture(t).withJob("job-1", models.JobStatusOngoing, 2).onRoster("job-1", aliceID)

		_, err := f.orch.CreateSubmission(ctx, alice, "job-1", nil, "x.txt", "")
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
	})
}

func TestReviewSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("accept", func(t *testing.T) {
		f, sub := submitted(t)

		reviewed, err := f.orch.ReviewSubmission(ctx, owner, sub.ID, models.SubmissionAccepted, "ignored")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionAccepted, reviewed.Status)
		assert.Empty(t, reviewed.RejectMessage)
		assert.Equal(t, models.SubmissionAccepted, f.backend.submission(sub.ID).Status)

		msgs := f.backend.inboxFor(aliceID)
		require.Len(t, msgs, 1)
		assert.Equal(t, models.ActionAccepted, msgs[0].Action)
	})

	t.Run("reject carries the message", func(t *testing.T) {
		f, sub := submitted(t)

		reviewed, err := f.orch.ReviewSubmission(ctx, owner, sub.ID, models.SubmissionRejected, "  colours are off ")
		require.NoError(t, err)
		assert.Equal(t, "colours are off", reviewed.RejectMessage)

		msgs := f.backend.inboxFor(aliceID)
		require.Len(t, msgs, 1)
		assert.Equal(t, models.ActionRejected, msgs[0].Action)
		assert.Equal(t, "colours are off", msgs[0].Message)
	})

	t.Run("second review is rejected and keeps the first decision", func(t *testing.T) {
		f, sub := submitted(t)

		_, err := f.orch.ReviewSubmission(ctx, owner, sub.ID, models.SubmissionAccepted, "")
		require.NoError(t, err)
		_, err = f.orch.ReviewSubmission(ctx, owner, sub.ID, models.SubmissionRejected, "changed my mind")

		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
		assert.Equal(t, models.SubmissionAccepted, f.backend.submission(sub.ID).Status)
		assert.Equal(t, 1, f.backend.countCalls("UpdateSubmission"))
	})

	t.Run("concurrent review surfaces as invalid state", func(t *testing.T) {
		f, sub := submitted(t)
		f.backend.failNext("UpdateSubmission", errors.NewConflictError("submission", "already reviewed"))

		_, err := f.orch.ReviewSubmission(ctx, owner, sub.ID, models.SubmissionAccepted, "")
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	})

	t.Run("rejection survives a failing notification", func(t *testing.T) {
		f, sub := submitted(t)
		f.backend.failNext("CreateInbox", transient("inbox"))

		reviewed, err := f.orch.ReviewSubmission(ctx, owner, sub.ID, models.SubmissionRejected, "wrong format")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionRejected, reviewed.Status)
		assert.Equal(t, models.SubmissionRejected, f.backend.submission(sub.ID).Status)
		assert.Equal(t, "wrong format", f.backend.submission(sub.ID).RejectMessage)
		assert.Empty(t, f.backend.inboxFor(aliceID))
	})

	t.Run("validation", func(t *testing.T) {
		f, sub := submitted(t)

		_, err := f.orch.ReviewSubmission(ctx, owner, sub.ID, models.SubmissionWaiting, "")
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))

		_, err = f.orch.ReviewSubmission(ctx, owner, sub.ID, models.SubmissionRejected, "   ")
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
		assert.Zero(t, f.backend.countCalls("GetSubmission"))
	})

	t.Run("only the owner reviews", func(t *testing.T) {
		f, sub := submitted(t)

		_, err := f.orch.ReviewSubmission(ctx, alice, sub.ID, models.SubmissionAccepted, "")
		assert.True(t, errors.HasCode(err, errors.ErrCodeForbidden))
		assert.Equal(t, models.SubmissionWaiting, f.backend.submission(sub.ID).Status)
	})
}

func TestInbox(t *testing.T) {
	ctx := context.Background()
	f, _ := submitted(t)

	msgs, err := f.orch.ListInbox(ctx, owner)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Read)

	require.NoError(t, f.orch.MarkInboxRead(ctx, owner, msgs[0].ID))
	assert.True(t, f.backend.inboxFor(ownerID)[0].Read)

	err = f.orch.MarkInboxRead(ctx, alice, msgs[0].ID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeForbidden))

	err = f.orch.MarkInboxRead(ctx, owner, "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}
