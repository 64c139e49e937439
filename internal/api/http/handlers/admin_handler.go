package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-sla/internal/observability"
	"github.com/spec-kit/support-sla/internal/service"
)

// SweepRunner runs a deadline sweep on demand.
type SweepRunner interface {
	CheckDeadlines(ctx context.Context) (service.SweepResult, error)
}

// AdminHandler exposes operational endpoints.
type AdminHandler struct {
	metrics *observability.Metrics
	sweeper SweepRunner
}

// NewAdminHandler constructs handler.
func NewAdminHandler(metrics *observability.Metrics, sweeper SweepRunner) *AdminHandler {
	return &AdminHandler{metrics: metrics, sweeper: sweeper}
}

// Metrics GET /admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}

// Sweep POST /admin/sla/sweep.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	result, err := h.sweeper.CheckDeadlines(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
