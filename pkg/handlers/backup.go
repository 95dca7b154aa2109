package handlers

import (
	cfg "imgvault/config"
	"imgvault/pkg/interfaces"
	utils "imgvault/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type BackupHandler struct {
	backupService interfaces.BackupServiceInterface
	log           *utils.Logger
	config        *cfg.Config
}

// NewBackupHandler creates a backup handler. backupService is nil when backup is disabled.
func NewBackupHandler(backupService interfaces.BackupServiceInterface, log *utils.Logger, config *cfg.Config) *BackupHandler {
	return &BackupHandler{
		backupService: backupService,
		log:           log,
		config:        config,
	}
}

func (h *BackupHandler) IsBackupEnabled() bool {
	return h.config != nil && h.config.Backup.Enabled && h.backupService != nil
}

func (h *BackupHandler) GetBackupStatus(c *fiber.Ctx) error {
	if !h.IsBackupEnabled() {
		provider := "none"
		if h.config != nil && h.config.Backup.Provider != "" {
			provider = h.config.Backup.Provider
		}
		return c.JSON(fiber.Map{
			"enabled":  false,
			"provider": provider,
		})
	}

	return c.JSON(fiber.Map{
		"enabled": true,
		"status":  h.backupService.GetStatus(),
	})
}

func (h *BackupHandler) HandleBackup(c *fiber.Ctx) error {
	if !h.IsBackupEnabled() {
		return HTTPError(c, fiber.StatusBadRequest, "backup is not enabled")
	}

	if err := h.backupService.Backup(c.UserContext()); err != nil {
		h.log.WithError(err).Error("❌ Backup failed")
		return HTTPError(c, fiber.StatusInternalServerError, err.Error())
	}

	h.log.Info("✅ Backup successful")
	return c.JSON(fiber.Map{
		"message": "Backup completed successfully",
		"status":  h.backupService.GetStatus(),
	})
}

func (h *BackupHandler) HandleRestore(c *fiber.Ctx) error {
	if !h.IsBackupEnabled() {
		return HTTPError(c, fiber.StatusBadRequest, "backup is not enabled")
	}

	if err := h.backupService.Restore(c.UserContext()); err != nil {
		h.log.WithError(err).Error("❌ Restore failed")
		return HTTPError(c, fiber.StatusInternalServerError, err.Error())
	}

	h.log.Info("✅ Restore successful")
	return c.JSON(fiber.Map{
		"message": "Restore completed successfully",
		"status":  h.backupService.GetStatus(),
	})
}
