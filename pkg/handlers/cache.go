// pkg/handlers/cache.go
package handlers

import (
	"imgvault/pkg/interfaces"
	"imgvault/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// CacheHandler handles cache management HTTP requests
type CacheHandler struct {
	log   *utils.Logger
	cache interfaces.CacheInterface
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache interfaces.CacheInterface, log *utils.Logger) *CacheHandler {
	return &CacheHandler{
		cache: cache,
		log:   log,
	}
}

// GetStats returns the cache counters and keys
// GET /cache/stats
func (h *CacheHandler) GetStats(c *fiber.Ctx) error {
	h.log.WithFunc().Debug("Getting cache stats")
	return c.JSON(h.cache.Stats())
}

// DeletePattern removes every key matching a glob
// DELETE /cache?pattern=manifest:*
func (h *CacheHandler) DeletePattern(c *fiber.Ctx) error {
	pattern := c.Query("pattern")
	if err := utils.ValidatePattern(pattern); err != nil {
		return HTTPError(c, fiber.StatusBadRequest, err.Error())
	}

	deleted := h.cache.DeletePattern(pattern)
	h.log.WithFunc().WithField("pattern", pattern).WithField("deleted", deleted).Info("Cache entries invalidated")

	return c.JSON(fiber.Map{
		"pattern": pattern,
		"deleted": deleted,
	})
}

// Clear removes every entry
// POST /cache/clear
func (h *CacheHandler) Clear(c *fiber.Ctx) error {
	h.cache.Clear()
	h.log.WithFunc().Info("Cache cleared")
	return c.JSON(fiber.Map{"message": "cache cleared"})
}
