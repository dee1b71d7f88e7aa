package rejectapplier

import (
	"context"
	"testing"

	"ergasia-workers/internal/common/config"
	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSaga struct {
	mock.Mock
}

func (m *mockSaga) RejectApplier(ctx context.Context, actor identity.Actor, jobID, freelancerID string) error {
	return m.Called(ctx, actor, jobID, freelancerID).Error(0)
}

func TestHandler_Execute(t *testing.T) {
	saga := &mockSaga{}
	saga.On("RejectApplier", mock.Anything, identity.Actor{UserID: "owner-1"}, "job-1", "freelancer-1").Return(nil)
	h := NewHandler(LoadConfig(&config.Config{}), saga, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{ActorID: "owner-1", JobID: "job-1", FreelancerID: "freelancer-1"})
	require.NoError(t, err)
	assert.True(t, out.ApplierRejected)
}

func TestHandler_Execute_NotOwner(t *testing.T) {
	saga := &mockSaga{}
	saga.On("RejectApplier", mock.Anything, mock.Anything, "job-1", "freelancer-1").
		Return(errors.NewForbiddenError("only the job owner can review appliers"))
	h := NewHandler(LoadConfig(&config.Config{}), saga, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{ActorID: "freelancer-2", JobID: "job-1", FreelancerID: "freelancer-1"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeForbidden))
}
