// pkg/handlers/gc.go
package handlers

import (
	service "imgvault/pkg/services"
	"imgvault/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// GCHandler exposes the storage sweeper
type GCHandler struct {
	gcService *service.GCService
	log       *utils.Logger
}

func NewGCHandler(gcService *service.GCService, log *utils.Logger) *GCHandler {
	return &GCHandler{
		gcService: gcService,
		log:       log,
	}
}

// RunGC removes abandoned staging directories and stale uploads.
// A real run also reports the storage usage left behind.
// POST /gc?dryRun=true
func (h *GCHandler) RunGC(c *fiber.Ctx) error {
	dryRun := c.QueryBool("dryRun", false)
	log := h.log.WithFunc().WithField("dryRun", dryRun)

	result, err := h.gcService.Run(dryRun)
	if err != nil {
		log.WithError(err).Error("GC failed")
		return HTTPError(c, fiber.StatusInternalServerError, "garbage collection failed")
	}
	if result == nil {
		return HTTPError(c, fiber.StatusConflict, "garbage collection already running")
	}

	log.WithField("reclaimed", result.TotalBytesReclaimed).Info("GC finished")

	body := fiber.Map{
		"dryRun": dryRun,
		"result": result,
	}
	if !dryRun {
		if stats, err := h.gcService.GetStats(); err == nil {
			body["storage"] = stats
		}
	}
	return c.JSON(body)
}

// GetStats reports variant, staging and temp usage
// GET /gc/stats
func (h *GCHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.gcService.GetStats()
	if err != nil {
		h.log.WithFunc().WithError(err).Error("Failed to get storage stats")
		return HTTPError(c, fiber.StatusInternalServerError, "failed to get storage statistics")
	}
	return c.JSON(stats)
}
