package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"survey-backend/middlewares"
	"survey-backend/submission"
)

// Submitter runs one survey submission.
type Submitter interface {
	Submit(ctx context.Context, surveyCode string, req submission.SubmitRequest) (*submission.Result, error)
}

type SubmissionController struct {
	submitter Submitter
}

func NewSubmissionController(s Submitter) *SubmissionController {
	return &SubmissionController{submitter: s}
}

// Submit handles POST /api/surveys/:surveyCode/submit.
func (sc *SubmissionController) Submit(c *fiber.Ctx) error {
	var req submission.SubmitRequest
	if err := middlewares.BindJSON(c, &req); err != nil {
		return err
	}

	res, err := sc.submitter.Submit(c.UserContext(), c.Params("surveyCode"), req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"ok":          true,
		"response_id": res.ResponseID,
	})
}
