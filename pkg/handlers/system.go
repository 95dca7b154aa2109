// pkg/handlers/system.go
package handlers

import (
	"imgvault/pkg/version"

	"github.com/gofiber/fiber/v2"
)

// Health answers liveness probes
// GET /health
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": version.String(),
	})
}

// Version returns build information
// GET /version
func Version(c *fiber.Ctx) error {
	info := version.Info()
	if v := version.Semver(); v != nil {
		info["semver"] = v.String()
		info["prerelease"] = v.Prerelease()
	}
	return c.JSON(info)
}
