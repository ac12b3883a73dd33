package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"survey-backend/controllers"
	"survey-backend/middlewares"
)

// Deps carries everything the routes need. Admin is optional.
type Deps struct {
	Submissions      *controllers.SubmissionController
	Admin            *controllers.AdminController
	Idempotency      middlewares.IdempotencyStore
	IdempotencyTTL   time.Duration
	IdempotencyLease time.Duration
	AdminJWTSecret   string
}

// Register wires all HTTP routes.
func Register(app *fiber.App, d Deps) {
	api := app.Group("/api")

	// Public submission endpoint; Idempotency-Key is optional
	submit := []fiber.Handler{}
	if d.Idempotency != nil {
		submit = append(submit, middlewares.Idempotency(d.Idempotency, d.IdempotencyTTL, d.IdempotencyLease))
	}
	submit = append(submit, d.Submissions.Submit)
	api.Post("/surveys/:surveyCode/submit", submit...)

	// Admin endpoints exist only when a signing secret is configured
	if d.Admin == nil || d.AdminJWTSecret == "" {
		return
	}
	admin := api.Group("/admin", middlewares.AdminAuth(d.AdminJWTSecret))
	admin.Post("/sweep", d.Admin.Sweep)
}
