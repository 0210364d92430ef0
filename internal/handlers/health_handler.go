package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	cfg *config.Config
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		status = "degraded"
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		AuthMode:  h.cfg.AuthMode,
		AI:        h.cfg.AIConfigured(),
	})
}
