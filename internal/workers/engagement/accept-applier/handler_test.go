package acceptapplier

import (
	"context"
	"testing"

	"ergasia-workers/internal/common/config"
	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/orchestrator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSaga struct {
	mock.Mock
}

func (m *mockSaga) AcceptApplier(ctx context.Context, actor identity.Actor, jobID, freelancerID string) (*orchestrator.EngagementResult, error) {
	args := m.Called(ctx, actor, jobID, freelancerID)
	res, _ := args.Get(0).(*orchestrator.EngagementResult)
	return res, args.Error(1)
}

func newHandler(t *testing.T, saga Saga) *Handler {
	return NewHandler(LoadConfig(&config.Config{}), saga, logger.NewTestLogger(t))
}

func TestHandler_Execute_Accepts(t *testing.T) {
	saga := &mockSaga{}
	saga.On("AcceptApplier", mock.Anything, identity.Actor{UserID: "owner-1"}, "job-1", "freelancer-1").
		Return(&orchestrator.EngagementResult{JobID: "job-1", FreelancerID: "freelancer-1", Appended: true}, nil)

	out, err := newHandler(t, saga).Execute(context.Background(),
		&Input{ActorID: "owner-1", JobID: "job-1", FreelancerID: "freelancer-1"})

	require.NoError(t, err)
	assert.Equal(t, &Output{ApplierAccepted: true, Appended: true}, out)
}

func TestHandler_Execute_ReconciliationNeeded(t *testing.T) {
	saga := &mockSaga{}
	cause := errors.NewExternalServiceError("job_transaction", assert.AnError)
	saga.On("AcceptApplier", mock.Anything, mock.Anything, "job-1", "freelancer-1").
		Return(nil, errors.NewReconciliationNeededError("AcceptApplier", "rec-1", cause))

	_, err := newHandler(t, saga).Execute(context.Background(),
		&Input{ActorID: "owner-1", JobID: "job-1", FreelancerID: "freelancer-1"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeReconciliationNeeded))
}

func TestParseInput(t *testing.T) {
	_, err := parseInput(`{"actorId":"owner-1","freelancerId":"freelancer-1"}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}
