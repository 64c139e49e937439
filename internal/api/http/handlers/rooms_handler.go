package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-sla/internal/api/dto"
	"github.com/spec-kit/support-sla/internal/workinghours"
)

// CoverageProvider computes a room's responder coverage.
type CoverageProvider interface {
	RoomCoverage(ctx context.Context, roomID, zoneID string) ([]workinghours.WorkingHours, error)
}

// RoomsHandler exposes room queries.
type RoomsHandler struct {
	coverage CoverageProvider
}

// NewRoomsHandler constructs handler.
func NewRoomsHandler(coverage CoverageProvider) *RoomsHandler {
	return &RoomsHandler{coverage: coverage}
}

// Coverage GET /rooms/:id/coverage?tz=.
func (h *RoomsHandler) Coverage(c *fiber.Ctx) error {
	zone := c.Query("tz")
	windows, err := h.coverage.RoomCoverage(c.UserContext(), c.Params("id"), zone)
	if err != nil {
		return err
	}
	if zone == "" {
		zone = "UTC"
	}
	resp := dto.CoverageResponse{RoomID: c.Params("id"), TimeZone: zone, Windows: make([]dto.CoverageWindow, 0, len(windows))}
	for _, wh := range windows {
		resp.Windows = append(resp.Windows, dto.CoverageWindow{Start: wh.Start.String(), End: wh.End.String()})
	}
	return c.JSON(fiber.Map{"data": resp})
}
