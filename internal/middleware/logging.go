package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/learning-journal/internal/logger"
	"github.com/iliyamo/learning-journal/internal/queue"
)

// RequestID tags every request with a UUID, echoes it in the X-Request-ID
// header and attaches it to the request context so audit events carry it.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(queue.WithRequestID(req.Context(), id)))
		},
	})
}

// RequestLogger writes one structured line per request once the chain has
// run, so the principal set by Session is visible.
func RequestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			kv := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
				"user", userID(c),
			}
			switch {
			case v.Error != nil:
				logger.Error("request", append(kv, "err", v.Error)...)
			case v.Status >= 500:
				logger.Error("request", kv...)
			default:
				logger.Info("request", kv...)
			}
			return nil
		},
	})
}
