package main

import (
	"testing"

	"ergasia-workers/internal/common/config"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/orchestrator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogue(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Version = "1.2.0"

	reg, err := catalogue(cfg)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", reg.Version)
	assert.Len(t, reg.Activities, len(activities))

	start, ok := reg.Find("start-job")
	require.True(t, ok)
	assert.True(t, start.NonIdempotent)
	assert.Zero(t, start.Retries)
	assert.Contains(t, start.ErrorCodes, "INSUFFICIENT_FUNDS")

	accept, ok := reg.Find("accept-invitation")
	require.True(t, ok)
	assert.Equal(t, 3, accept.Retries)
	assert.Equal(t, "30s", accept.Timeout)
}

func TestActivitiesBuildHandlers(t *testing.T) {
	cfg := &config.Config{}
	orch := orchestrator.New(orchestrator.Deps{}, orchestrator.Config{})
	for _, a := range activities {
		assert.NotNil(t, a.newHandler(cfg, orch, logger.NewTestLogger(t)), a.taskType)
	}
}
