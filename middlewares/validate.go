package middlewares

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"survey-backend/submission"
)

// BindJSON parses the request body into dst. Any parse failure, including a
// missing JSON content type, is reported as a validation error. A wrongly
// typed member is reported under its JSON name.
func BindJSON(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return &submission.Error{Code: submission.CodeValidation, Message: "request body is required", Index: -1}
	}
	if err := c.BodyParser(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &submission.Error{
				Code:    submission.CodeValidation,
				Message: fmt.Sprintf("%s must be a JSON %s", typeErr.Field, jsonKind(typeErr.Type.String())),
				Field:   typeErr.Field,
				Index:   -1,
				Err:     err,
			}
		}
		return &submission.Error{Code: submission.CodeValidation, Message: "invalid request body", Index: -1, Err: err}
	}
	return nil
}

func jsonKind(goType string) string {
	switch {
	case goType == "string", goType == "*string":
		return "string"
	case len(goType) > 2 && goType[:2] == "[]":
		return "array"
	default:
		return "value"
	}
}
