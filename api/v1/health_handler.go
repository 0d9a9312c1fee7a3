package v1

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports service liveness.
func HealthHandler(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}
