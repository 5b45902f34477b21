package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderRequestID carries the request correlation id.
const HeaderRequestID = "X-Request-ID"

// SubjectFunc returns the authenticated subject of a request, if any.
type SubjectFunc func(c *fiber.Ctx) (string, bool)

// RequestLogger logs one line per request and records request metrics. It is
// registered ahead of the error handling middleware so the status it reads is
// the one written to the client.
func RequestLogger(logger *zap.Logger, metrics *Metrics, subject SubjectFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(HeaderRequestID, requestID)

		err := c.Next()

		status := c.Response().StatusCode()
		duration := time.Since(start)
		route := c.Route().Path

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", duration),
			zap.String("ip", c.IP()),
		}
		if subject != nil {
			if sub, ok := subject(c); ok {
				fields = append(fields, zap.String("subject", sub))
			}
		}
		logger.Info("request", fields...)
		metrics.RecordRequest(route, c.Method(), status, duration)
		return err
	}
}
