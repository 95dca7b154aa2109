// pkg/handlers/image.go
package handlers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"imgvault/config"
	"imgvault/pkg/interfaces"
	"imgvault/pkg/models"
	service "imgvault/pkg/services"
	"imgvault/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ImageHandler handles uploads and manifest lookups
type ImageHandler struct {
	images      interfaces.ImageServiceInterface
	jobs        interfaces.JobServiceInterface
	pathManager *utils.PathManager
	config      *config.Config
	log         *utils.Logger
}

// NewImageHandler creates a new image handler. jobs may be nil, disabling async uploads.
func NewImageHandler(images interfaces.ImageServiceInterface, jobs interfaces.JobServiceInterface, pathManager *utils.PathManager, cfg *config.Config, log *utils.Logger) *ImageHandler {
	return &ImageHandler{
		images:      images,
		jobs:        jobs,
		pathManager: pathManager,
		config:      cfg,
		log:         log,
	}
}

// Upload stores the multipart field "image" and optimizes it
// POST /images?thumbnail=false&preview=false&async=true
func (h *ImageHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		h.log.WithFunc().WithError(err).Debug("No image in request")
		return HTTPError(c, fiber.StatusBadRequest, "missing image file")
	}

	if limit := int64(h.config.Images.MaxUploadMB) << 20; file.Size > limit {
		return HTTPError(c, fiber.StatusRequestEntityTooLarge, "file too large")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	tempPath := h.pathManager.GetTempPath(uuid.NewString() + ext)
	if err := c.SaveFile(file, tempPath); err != nil {
		h.log.WithFunc().WithError(err).Error("Failed to store upload")
		return HTTPError(c, fiber.StatusInternalServerError, "failed to store upload")
	}

	if !h.images.ValidateImage(tempPath) {
		removeUpload(h.log, tempPath)
		return HTTPError(c, fiber.StatusBadRequest, "unsupported file")
	}

	opts := models.DefaultOptimizeOptions()
	opts.GenerateThumbnail = c.Query("thumbnail", "true") != "false"
	opts.GeneratePreview = c.Query("preview", "true") != "false"
	opts.Atomic = h.config.Images.Atomic || c.Query("atomic") == "true"

	baseName := utils.NewBaseName()
	log := h.log.WithFunc().WithFields(logrus.Fields{
		"file":     file.Filename,
		"size":     file.Size,
		"baseName": baseName,
	})

	if c.Query("async") == "true" && h.jobs != nil {
		job := &models.OptimizeJob{SourcePath: tempPath, BaseName: baseName, Options: opts}
		if err := h.jobs.Submit(c.UserContext(), job); err != nil {
			log.WithError(err).Error("Failed to queue job")
			removeUpload(h.log, tempPath)
			return RetryableError(c, fiber.StatusServiceUnavailable, "queue unavailable")
		}
		log.WithField("job", job.ID).Info("Upload queued")
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"jobId":    job.ID,
			"baseName": baseName,
			"status":   "/jobs/" + job.ID,
		})
	}

	manifest, err := h.images.Optimize(c.UserContext(), tempPath, h.pathManager.GetImagesPath(), baseName, opts)
	removeUpload(h.log, tempPath)
	if err != nil {
		log.WithError(err).Error("Failed to process upload")
		return RetryableError(c, fiber.StatusInternalServerError, "processing failed")
	}

	log.Info("Upload optimized")
	return c.Status(fiber.StatusCreated).JSON(manifest)
}

func removeUpload(log *utils.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.WithFunc().WithError(err).WithField("path", path).Warn("Failed to remove upload")
	}
}

// lookup resolves the :base param to a manifest, writing the error response itself
func (h *ImageHandler) lookup(c *fiber.Ctx) (*models.OptimizationManifest, error) {
	baseName := c.Params("base")
	if err := utils.ValidateBaseName(baseName); err != nil {
		return nil, HTTPError(c, fiber.StatusBadRequest, err.Error())
	}

	manifest, err := h.images.GetManifest(baseName)
	if err != nil {
		if errors.Is(err, service.ErrManifestNotFound) {
			return nil, HTTPError(c, fiber.StatusNotFound, "image not found")
		}
		h.log.WithFunc().WithError(err).WithField("baseName", baseName).Error("Failed to get manifest")
		return nil, HTTPError(c, fiber.StatusInternalServerError, "failed to get manifest")
	}
	return manifest, nil
}

// GetManifest returns the manifest of an optimized image
// GET /images/:base
func (h *ImageHandler) GetManifest(c *fiber.Ctx) error {
	manifest, err := h.lookup(c)
	if manifest == nil {
		return err
	}
	return c.JSON(manifest)
}

// GetSrcSet returns the srcset attribute of an optimized image
// GET /images/:base/srcset
func (h *ImageHandler) GetSrcSet(c *fiber.Ctx) error {
	manifest, err := h.lookup(c)
	if manifest == nil {
		return err
	}
	return c.JSON(fiber.Map{
		"baseName": manifest.BaseName,
		"srcset":   manifest.SrcSet(),
	})
}

// GetBestVariant returns the smallest variant covering the requested width
// GET /images/:base/best?width=N
func (h *ImageHandler) GetBestVariant(c *fiber.Ctx) error {
	width := c.QueryInt("width", 0)
	if width <= 0 {
		return HTTPError(c, fiber.StatusBadRequest, "width must be a positive integer")
	}

	manifest, err := h.lookup(c)
	if manifest == nil {
		return err
	}
	return c.JSON(manifest.BestVariant(width))
}

// DeleteImage removes every variant of an optimized image
// DELETE /images/:base
func (h *ImageHandler) DeleteImage(c *fiber.Ctx) error {
	baseName := c.Params("base")
	if err := utils.ValidateBaseName(baseName); err != nil {
		return HTTPError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.images.DeleteImage(c.UserContext(), baseName); err != nil {
		if errors.Is(err, service.ErrManifestNotFound) {
			return HTTPError(c, fiber.StatusNotFound, "image not found")
		}
		h.log.WithFunc().WithError(err).WithField("baseName", baseName).Error("Failed to delete image")
		return HTTPError(c, fiber.StatusInternalServerError, "failed to delete image")
	}

	h.log.WithFunc().WithField("baseName", baseName).Info("Image deleted")
	return c.JSON(fiber.Map{"message": "image deleted", "baseName": baseName})
}
