// pkg/services/gc.go
package service

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"imgvault/config"
	"imgvault/pkg/metrics"
	"imgvault/pkg/models"
	"imgvault/pkg/utils"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// GCResult contains the results of a garbage collection run
type GCResult struct {
	StagingDirsDeleted  int      `json:"stagingDirsDeleted"`
	StagingBytes        int64    `json:"stagingBytes"`
	TempFilesDeleted    int      `json:"tempFilesDeleted"`
	TempBytes           int64    `json:"tempBytes"`
	TotalBytesReclaimed int64    `json:"totalBytesReclaimed"`
	DurationMs          int64    `json:"durationMs"`
	Errors              []string `json:"errors,omitempty"`
}

// GCService removes what interrupted optimizations leave behind:
// staging directories of atomic runs and uploads that never reached a worker.
type GCService struct {
	config      *config.Config
	pathManager *utils.PathManager
	log         *utils.Logger
	clock       clockwork.Clock
	maxAge      time.Duration
	mu          sync.Mutex
	running     bool
}

// NewGCService creates a new garbage collection service
func NewGCService(cfg *config.Config, pathManager *utils.PathManager, log *utils.Logger) *GCService {
	return &GCService{
		config:      cfg,
		pathManager: pathManager,
		log:         log,
		clock:       clockwork.NewRealClock(),
		maxAge:      cfg.GCMaxAge(),
	}
}

// Run executes a full garbage collection cycle.
// It returns nil, nil when another run is in progress.
func (gc *GCService) Run(dryRun bool) (*GCResult, error) {
	gc.mu.Lock()
	if gc.running {
		gc.mu.Unlock()
		return nil, nil // Already running
	}
	gc.running = true
	gc.mu.Unlock()

	defer func() {
		gc.mu.Lock()
		gc.running = false
		gc.mu.Unlock()
	}()

	start := gc.clock.Now()
	cutoff := start.Add(-gc.maxAge)
	result := &GCResult{}

	gc.log.WithFields(logrus.Fields{
		"dryRun": dryRun,
		"cutoff": cutoff,
	}).Info("Starting garbage collection")

	// Phase 1: abandoned staging directories
	staging, err := gc.cleanStagingDirs(cutoff, dryRun)
	if err != nil {
		result.Errors = append(result.Errors, "staging: "+err.Error())
	}
	result.StagingDirsDeleted = staging.deleted
	result.StagingBytes = staging.bytes

	// Phase 2: stale uploads
	temp, err := gc.cleanTempFiles(cutoff, dryRun)
	if err != nil {
		result.Errors = append(result.Errors, "temp: "+err.Error())
	}
	result.TempFilesDeleted = temp.deleted
	result.TempBytes = temp.bytes

	result.TotalBytesReclaimed = result.StagingBytes + result.TempBytes
	result.DurationMs = gc.clock.Since(start).Milliseconds()
	if !dryRun {
		metrics.RecordGC(result.StagingBytes, result.TempBytes)
	}
	for range result.Errors {
		metrics.RecordError("gc")
	}

	gc.log.WithFields(logrus.Fields{
		"stagingDirs":    result.StagingDirsDeleted,
		"tempFiles":      result.TempFilesDeleted,
		"bytesReclaimed": result.TotalBytesReclaimed,
		"durationMs":     result.DurationMs,
		"dryRun":         dryRun,
	}).Info("Garbage collection completed")

	return result, nil
}

type cleanResult struct {
	deleted int
	bytes   int64
}

func (gc *GCService) cleanStagingDirs(cutoff time.Time, dryRun bool) (cleanResult, error) {
	result := cleanResult{}
	imagesDir := gc.pathManager.GetImagesPath()

	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, err
	}

	for _, entry := range entries {
		if !entry.IsDir() || !utils.IsStagingDir(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		dir := filepath.Join(imagesDir, entry.Name())
		size := dirSize(dir)

		gc.log.WithFields(logrus.Fields{
			"dir":    entry.Name(),
			"size":   size,
			"dryRun": dryRun,
		}).Info("Found abandoned staging directory")

		result.deleted++
		result.bytes += size

		if !dryRun {
			if err := os.RemoveAll(dir); err != nil {
				gc.log.WithError(err).WithField("dir", entry.Name()).Warn("Failed to delete staging directory")
			}
		}
	}

	return result, nil
}

func (gc *GCService) cleanTempFiles(cutoff time.Time, dryRun bool) (cleanResult, error) {
	result := cleanResult{}
	tempDir := gc.pathManager.GetTempPath("")

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		gc.log.WithFields(logrus.Fields{
			"file":   entry.Name(),
			"size":   info.Size(),
			"dryRun": dryRun,
		}).Info("Found stale upload")

		result.deleted++
		result.bytes += info.Size()

		if !dryRun {
			if err := os.Remove(filepath.Join(tempDir, entry.Name())); err != nil {
				gc.log.WithError(err).WithField("file", entry.Name()).Warn("Failed to delete stale upload")
			}
		}
	}

	return result, nil
}

func dirSize(dir string) int64 {
	var size int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}

// GetStats returns current storage statistics
func (gc *GCService) GetStats() (*models.StorageStats, error) {
	stats := &models.StorageStats{
		MaxSize: int64(gc.config.Storage.MaxSizeGB) << 30,
	}

	if entries, err := os.ReadDir(gc.pathManager.GetImagesPath()); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				if utils.IsStagingDir(e.Name()) {
					stats.StagingDirCount++
				}
				continue
			}
			stats.VariantCount++
			if info, err := e.Info(); err == nil {
				stats.VariantsSize += info.Size()
			}
		}
	}

	if entries, err := os.ReadDir(gc.pathManager.GetTempPath("")); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			stats.TempFileCount++
			if info, err := e.Info(); err == nil {
				stats.TempSize += info.Size()
			}
		}
	}

	stats.TotalSize = stats.VariantsSize + stats.TempSize
	stats.CalculateUsagePercent()

	return stats, nil
}
