package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"survey-backend/database"
)

// Sweeper runs one reconciliation pass.
type Sweeper interface {
	SweepOnce(ctx context.Context) (database.SweepResult, error)
}

type AdminController struct {
	sweeper Sweeper
}

func NewAdminController(s Sweeper) *AdminController {
	return &AdminController{sweeper: s}
}

// Sweep handles POST /api/admin/sweep.
func (ac *AdminController) Sweep(c *fiber.Ctx) error {
	res, err := ac.sweeper.SweepOnce(c.UserContext())
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"admin":                   c.Locals("adminID"),
		"orphans_deleted":         res.OrphansDeleted,
		"idempotency_keys_purged": res.IdempotencyKeysPurged,
	}).Info("manual sweep")
	return c.JSON(res)
}
