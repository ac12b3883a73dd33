package middlewares

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"survey-backend/submission"
)

// StatusFor maps a submission outcome code to its HTTP status.
func StatusFor(code submission.Code) int {
	switch code {
	case submission.CodeValidation, submission.CodeIneligible:
		return fiber.StatusBadRequest
	case submission.CodeNotFound:
		return fiber.StatusNotFound
	case submission.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// apiError is a transport-level failure with its own stable code.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Code + ": " + e.Message }

// ErrorHandler centralizes error responses and keeps messages sanitized.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// 1) Submission outcomes (stable code + respondent-safe message)
	var se *submission.Error
	if errors.As(err, &se) {
		status := StatusFor(se.Code)
		body := fiber.Map{"ok": false, "code": se.Code, "message": se.Message}
		if se.Code == submission.CodeValidation {
			if se.Field != "" {
				body["field"] = se.Field
			}
			if se.Index >= 0 {
				body["index"] = se.Index
			}
		}
		if status >= fiber.StatusInternalServerError {
			body["message"] = "internal server error"
			requestLogger(c).WithError(err).Error("internal error")
		}
		return c.Status(status).JSON(body)
	}

	// 2) Middleware errors with their own code
	var ae *apiError
	if errors.As(err, &ae) {
		return c.Status(ae.Status).JSON(fiber.Map{"ok": false, "code": ae.Code, "message": ae.Message})
	}

	// 3) Fiber errors (use their status code + message)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"ok": false, "code": codeForStatus(fe.Code), "message": fe.Message})
	}

	// 4) Unknown errors (500)
	requestLogger(c).WithError(err).Error("internal error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"ok":      false,
		"code":    submission.CodeInternal,
		"message": "internal server error",
	})
}

func codeForStatus(status int) string {
	switch {
	case status == fiber.StatusNotFound:
		return string(submission.CodeNotFound)
	case status == fiber.StatusConflict:
		// "conflict" is reserved for an existing response
		return "request_conflict"
	case status == fiber.StatusUnauthorized:
		return "unauthorized"
	case status == fiber.StatusForbidden:
		return "forbidden"
	case status == fiber.StatusTooManyRequests:
		return "rate_limited"
	case status == fiber.StatusRequestEntityTooLarge, status < fiber.StatusInternalServerError:
		return string(submission.CodeValidation)
	default:
		return string(submission.CodeInternal)
	}
}

func requestLogger(c *fiber.Ctx) *log.Entry {
	return log.WithFields(log.Fields{
		"request_id": c.Locals(requestIDKey),
		"method":     c.Method(),
		"path":       c.Path(),
	})
}
