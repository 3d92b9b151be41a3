package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vps-service/internal/persistence"
	"github.com/spec-kit/vps-service/internal/store"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	store    *store.FileStore
	postgres *persistence.Postgres
	version  string
}

// NewHealthHandler constructs handler.
func NewHealthHandler(fileStore *store.FileStore, pg *persistence.Postgres, version string) *HealthHandler {
	return &HealthHandler{store: fileStore, postgres: pg, version: version}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": h.version})
}

// Ready GET /health/ready. The audit database is optional; readiness only
// fails on it when it is configured and unreachable.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if err := h.store.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "reason": "store"})
	}
	if h.postgres != nil && h.postgres.Enabled() {
		if err := h.postgres.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "reason": "audit database"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
