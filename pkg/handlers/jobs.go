// pkg/handlers/jobs.go
package handlers

import (
	"imgvault/pkg/interfaces"
	"imgvault/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// JobHandler reports the status of queued optimize jobs
type JobHandler struct {
	jobs interfaces.JobServiceInterface
	log  *utils.Logger
}

func NewJobHandler(jobs interfaces.JobServiceInterface, log *utils.Logger) *JobHandler {
	return &JobHandler{
		jobs: jobs,
		log:  log,
	}
}

// GetJob returns the last recorded status of a job
// GET /jobs/:id
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := utils.ValidateUUID(id); err != nil {
		return HTTPError(c, fiber.StatusBadRequest, err.Error())
	}

	status, ok := h.jobs.Status(id)
	if !ok {
		return HTTPError(c, fiber.StatusNotFound, "job not found")
	}
	return c.JSON(status)
}
