package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"
)

// requestIDKey is the Locals key used by fiber's requestid middleware.
const requestIDKey = "requestid"

// RequestID tags each request with an X-Request-ID.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{ContextKey: requestIDKey})
}

// RequestLogger logs one line per request after the error handler has run.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()
		if chainErr != nil {
			// Let the app's ErrorHandler write the response so the logged status is final.
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		entry := requestLogger(c).WithFields(log.Fields{
			"status":   status,
			"duration": time.Since(start).String(),
		})
		switch {
		case status >= fiber.StatusInternalServerError:
			entry.Error("request")
		case status >= fiber.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
		return nil
	}
}
