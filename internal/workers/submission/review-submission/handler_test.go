package reviewsubmission

import (
	"context"
	"testing"

	"ergasia-workers/internal/common/config"
	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSaga struct {
	mock.Mock
}

func (m *mockSaga) ReviewSubmission(ctx context.Context, actor identity.Actor, submissionID string, decision models.SubmissionStatus, rejectMessage string) (*models.Submission, error) {
	args := m.Called(ctx, actor, submissionID, decision, rejectMessage)
	res, _ := args.Get(0).(*models.Submission)
	return res, args.Error(1)
}

func TestHandler_Execute(t *testing.T) {
	owner := identity.Actor{UserID: "owner-1"}

	t.Run("reject with message", func(t *testing.T) {
		saga := &mockSaga{}
		saga.On("ReviewSubmission", mock.Anything, owner, "sub-1", models.SubmissionRejected, "missing appendix").
			Return(&models.Submission{ID: "sub-1", Status: models.SubmissionRejected, RejectMessage: "missing appendix"}, nil)
		h := NewHandler(LoadConfig(&config.Config{}), saga, logger.NewTestLogger(t))

		out, err := h.Execute(context.Background(), &Input{
			ActorID:       "owner-1",
			SubmissionID:  "sub-1",
			Decision:      "reject",
			RejectMessage: "missing appendix",
		})
		require.NoError(t, err)
		assert.Equal(t, "Rejected", out.SubmissionStatus)
	})

	t.Run("waiting is not a decision", func(t *testing.T) {
		saga := &mockSaga{}
		h := NewHandler(LoadConfig(&config.Config{}), saga, logger.NewTestLogger(t))

		_, err := h.Execute(context.Background(), &Input{ActorID: "owner-1", SubmissionID: "sub-1", Decision: "Waiting"})
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
		saga.AssertNotCalled(t, "ReviewSubmission", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already reviewed", func(t *testing.T) {
		saga := &mockSaga{}
		saga.On("ReviewSubmission", mock.Anything, owner, "sub-1", models.SubmissionAccepted, "").
			Return(nil, errors.NewInvalidStateError("Submission already reviewed", "sub-1 is Accepted"))
		h := NewHandler(LoadConfig(&config.Config{}), saga, logger.NewTestLogger(t))

		_, err := h.Execute(context.Background(), &Input{ActorID: "owner-1", SubmissionID: "sub-1", Decision: "Accepted"})
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	})
}

func TestParseInput_Decision(t *testing.T) {
	_, err := parseInput(`{"actorId":"owner-1","submissionId":"sub-1","decision":"maybe"}`)
	require.Error(t, err)
	stdErr, _ := errors.AsStandard(err)
	assert.Equal(t, []string{"decision"}, stdErr.Metadata["fields"])
}
