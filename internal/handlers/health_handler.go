package handlers

import (
	"time"

	"github.com/builtbyap/socrani-backend/internal/database"
	"github.com/builtbyap/socrani-backend/internal/dto"
	"github.com/builtbyap/socrani-backend/internal/plans"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	registry *plans.Registry
}

func NewHealthHandler(registry *plans.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		PlanCount: len(h.registry.All()),
	})
}
