package interfaces

import (
	"context"

	"imgvault/pkg/cache"
	"imgvault/pkg/models"
)

type ImageServiceInterface interface {
	// Optimize writes every requested tier of sourcePath into outputDir
	Optimize(ctx context.Context, sourcePath, outputDir, baseName string, opts models.OptimizeOptions) (*models.OptimizationManifest, error)
	// ValidateImage reports whether a file is a supported image within the size ceiling
	ValidateImage(path string) bool
	// GetImageInfo returns lightweight metadata, nil when the file cannot be decoded
	GetImageInfo(path string) *models.ImageInfo
	// GeneratePlaceholder returns a blurred data URL or the fallback placeholder
	GeneratePlaceholder(path string) string
	// GetManifest returns the manifest of an optimized image
	GetManifest(baseName string) (*models.OptimizationManifest, error)
	// DeleteImage removes every variant of an optimized image
	DeleteImage(ctx context.Context, baseName string) error
}

// CacheInterface is the management surface of the shared cache
type CacheInterface interface {
	Stats() cache.Stats
	DeletePattern(glob string) int
	Clear()
}

// JobServiceInterface queues optimize jobs and reports their status
type JobServiceInterface interface {
	Submit(ctx context.Context, job *models.OptimizeJob) error
	Status(id string) (*models.JobStatus, bool)
}

type BackupServiceInterface interface {
	Backup(ctx context.Context) error
	Restore(ctx context.Context) error
	GetStatus() models.BackupStatus
}
