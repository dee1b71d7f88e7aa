package applytojob

import (
	"context"
	"testing"
	"time"

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

func (m *mockSaga) ApplyToJob(ctx context.Context, actor identity.Actor, jobID string) (*models.Applier, error) {
	args := m.Called(ctx, actor, jobID)
	res, _ := args.Get(0).(*models.Applier)
	return res, args.Error(1)
}

func TestHandler_Execute(t *testing.T) {
	appliedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		applier  *models.Applier
		sagaErr  error
		expected *Output
		errCode  errors.ErrorCode
	}{
		{
			name:     "records application",
			applier:  &models.Applier{UserID: "freelancer-1", JobID: "job-1", Status: models.ApplierPending, AppliedAt: appliedAt},
			expected: &Output{Applied: true, AppliedAt: appliedAt},
		},
		{
			name:     "duplicate completes with flag",
			sagaErr:  errors.NewDuplicateApplicationError("freelancer-1", "job-1"),
			expected: &Output{AlreadyApplied: true},
		},
		{
			name:    "job already started",
			sagaErr: errors.NewInvalidStateError("Job is not open for applications", "job-1 is Ongoing"),
			errCode: errors.ErrCodeInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saga := &mockSaga{}
			saga.On("ApplyToJob", mock.Anything, identity.Actor{UserID: "freelancer-1"}, "job-1").Return(tt.applier, tt.sagaErr)
			h := NewHandler(LoadConfig(&config.Config{}), saga, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{ActorID: "freelancer-1", JobID: "job-1"})

			if tt.errCode != "" {
				assert.True(t, errors.HasCode(err, tt.errCode))
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestParseInput(t *testing.T) {
	_, err := parseInput(`{"actorId":"freelancer-1","jobId":""}`)
	require.Error(t, err)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, []string{"jobId"}, stdErr.Metadata["fields"])

	_, err = parseInput(`{"actorId":1,"jobId":"job-1"}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}
