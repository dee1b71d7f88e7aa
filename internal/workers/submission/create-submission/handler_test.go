package createsubmission

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

func (m *mockSaga) CreateSubmission(ctx context.Context, actor identity.Actor, jobID string, file []byte, fileName, message string) (*models.Submission, error) {
	args := m.Called(ctx, actor, jobID, file, fileName, message)
	res, _ := args.Get(0).(*models.Submission)
	return res, args.Error(1)
}

func TestHandler_Execute(t *testing.T) {
	saga := &mockSaga{}
	saga.On("CreateSubmission", mock.Anything, identity.Actor{UserID: "freelancer-1"}, "job-1", []byte("report"), "report.pdf", "first draft").
		Return(&models.Submission{ID: "sub-1", JobID: "job-1", Status: models.SubmissionWaiting}, nil)
	h := NewHandler(LoadConfig(&config.Config{}), saga, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		ActorID:  "freelancer-1",
		JobID:    "job-1",
		File:     []byte("report"),
		FileName: "report.pdf",
		Message:  "first draft",
	})

	require.NoError(t, err)
	assert.Equal(t, &Output{SubmissionID: "sub-1", SubmissionStatus: "Waiting"}, out)
}

func TestParseInput(t *testing.T) {
	// "cmVwb3J0" is base64 for "report".
	input, err := parseInput(`{"actorId":"freelancer-1","jobId":"job-1","file":"cmVwb3J0","fileName":"report.pdf"}`)
	require.NoError(t, err)
	assert.Equal(t, []byte("report"), input.File)

	_, err = parseInput(`{"actorId":"freelancer-1","jobId":"job-1"}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))

	_, err = parseInput(`{"actorId":"freelancer-1","jobId":"job-1","file":"%%%"}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInputParsingFailed))
}
