package submission

import (
	"time"

	"survey-backend/models"
)

// CheckEligibility applies the status gate and then the window gate.
// unsetStatusOpen decides whether a survey without a status accepts answers.
// now equal to starts_at or ends_at is inside the window.
func CheckEligibility(survey *models.Survey, now time.Time, unsetStatusOpen bool) error {
	if survey.Status == nil || *survey.Status == "" {
		if !unsetStatusOpen {
			return newError(CodeIneligible, "survey is not accepting responses", nil)
		}
	} else if *survey.Status != models.StatusOpen {
		return newError(CodeIneligible, "survey is not accepting responses", nil)
	}

	if survey.StartsAt != nil && now.Before(*survey.StartsAt) {
		return newError(CodeIneligible, "survey has not started yet", nil)
	}
	if survey.EndsAt != nil && now.After(*survey.EndsAt) {
		return newError(CodeIneligible, "survey has already ended", nil)
	}
	return nil
}
