package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/auth-service/internal/events"
)

func TestAuditWorkerLogsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := events.NewInMemoryDispatcher()
	StartAuditWorker(d, zap.New(core))

	require.NoError(t, d.Publish(context.Background(),
		events.NewEvent(events.EventTokenRefreshed, "alice@example.com", "u-1", events.TokenRefreshedPayload{Rotated: true})))

	entries := logs.FilterMessage("auth event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "token_refreshed", fields["event"])
	assert.Equal(t, "alice@example.com", fields["subject"])
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, "audit", entries[0].LoggerName)
}

func TestAuditWorkerNilDeps(t *testing.T) {
	assert.NotPanics(t, func() {
		StartAuditWorker(nil, zap.NewNop())
		StartAuditWorker(events.NewInMemoryDispatcher(), nil)
	})
}
