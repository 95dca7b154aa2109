// pkg/handlers/config.go
package handlers

import (
	config "imgvault/config"
	utils "imgvault/pkg/utils"
	"imgvault/pkg/version"

	"github.com/gofiber/fiber/v2"
)

// ConfigHandler exposes the running configuration. Passwords and the
// Redis URL are excluded by their json tags.
type ConfigHandler struct {
	log    *utils.Logger
	config *config.Config
}

func NewConfigHandler(config *config.Config, logger *utils.Logger) *ConfigHandler {
	return &ConfigHandler{
		config: config,
		log:    logger,
	}
}

// GET /config
func (h *ConfigHandler) GetConfig(c *fiber.Ctx) error {
	h.log.WithFunc().Debug("Serving configuration")
	return c.JSON(fiber.Map{
		"version":     version.String(),
		"authEnabled": len(h.config.Auth.Users) > 0,
		"config":      h.config,
	})
}
