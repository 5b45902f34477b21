package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
)

var auditedEvents = []events.EventType{
	events.EventUserRegistered,
	events.EventLoginSucceeded,
	events.EventLoginFailed,
	events.EventLoginThrottled,
	events.EventTokenRefreshed,
	events.EventPasswordChanged,
}

// StartAuditWorker subscribes a structured audit log writer to every auth event.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}
	audit := logger.Named("audit")
	for _, t := range auditedEvents {
		dispatcher.Subscribe(t, func(_ context.Context, e events.Event) error {
			fields := []zap.Field{
				zap.String("event_id", e.ID),
				zap.String("event", string(e.Type)),
				zap.String("subject", e.Subject),
				zap.Time("at", e.Timestamp),
			}
			if e.UserID != "" {
				fields = append(fields, zap.String("user_id", e.UserID))
			}
			if e.Payload != nil {
				fields = append(fields, zap.Any("payload", e.Payload))
			}
			audit.Info("auth event", fields...)
			return nil
		})
	}
}
