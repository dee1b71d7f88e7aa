package reconcilesaga

import (
	"context"
	"testing"

	"ergasia-workers/internal/common/config"
	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/orchestrator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSaga struct {
	mock.Mock
}

func (m *mockSaga) ReconcilePending(ctx context.Context, limit int) (*orchestrator.ReconcileSummary, error) {
	args := m.Called(ctx, limit)
	res, _ := args.Get(0).(*orchestrator.ReconcileSummary)
	return res, args.Error(1)
}

func (m *mockSaga) ReplayRecord(ctx context.Context, recordID string) (orchestrator.Outcome, error) {
	args := m.Called(ctx, recordID)
	return args.Get(0).(orchestrator.Outcome), args.Error(1)
}

func newHandler(t *testing.T, saga Saga) *Handler {
	cfg := &config.Config{}
	cfg.Reconcile.BatchSize = 20
	return NewHandler(LoadConfig(cfg), saga, logger.NewTestLogger(t))
}

func TestHandler_Execute_Pass(t *testing.T) {
	saga := &mockSaga{}
	saga.On("ReconcilePending", mock.Anything, 20).
		Return(&orchestrator.ReconcileSummary{Scanned: 3, Resolved: 2, Manual: 1}, nil).Once()
	saga.On("ReconcilePending", mock.Anything, 5).
		Return(&orchestrator.ReconcileSummary{}, nil).Once()
	h := newHandler(t, saga)

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, &Output{Scanned: 3, Resolved: 2, Manual: 1}, out)

	_, err = h.Execute(context.Background(), &Input{Limit: 5})
	require.NoError(t, err)
	saga.AssertExpectations(t)
}

func TestHandler_Execute_SingleRecord(t *testing.T) {
	saga := &mockSaga{}
	saga.On("ReplayRecord", mock.Anything, "rec-1").Return(orchestrator.OutcomeDismissed, nil)
	saga.On("ReplayRecord", mock.Anything, "rec-2").
		Return(orchestrator.Outcome(""), errors.NewInvalidStateError("Reconciliation record is not open", "rec-2 is manual"))
	h := newHandler(t, saga)

	out, err := h.Execute(context.Background(), &Input{RecordID: "rec-1"})
	require.NoError(t, err)
	assert.Equal(t, &Output{Outcome: "dismissed", Scanned: 1, Dismissed: 1}, out)

	_, err = h.Execute(context.Background(), &Input{RecordID: "rec-2"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	saga.AssertNotCalled(t, "ReconcilePending", mock.Anything, mock.Anything)
}

func TestLoadConfig_DefaultBatch(t *testing.T) {
	assert.Equal(t, 50, LoadConfig(&config.Config{}).BatchSize)
}

func TestParseInput(t *testing.T) {
	input, err := parseInput(``)
	require.NoError(t, err)
	assert.Empty(t, input.RecordID)

	_, err = parseInput(`{"limit":0}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}
