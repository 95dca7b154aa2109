// pkg/utils/paths.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StagingPrefix marks the per-call directories used by atomic optimization
const StagingPrefix = ".staging-"

type PathManager struct {
	baseStoragePath string
	log             *Logger
}

func NewPathManager(basePath string, log *Logger) (*PathManager, error) {
	pm := &PathManager{
		baseStoragePath: basePath,
		log:             log,
	}

	// Créer les dossiers nécessaires
	dirs := []string{
		pm.GetTempPath(""),  // uploads waiting for the pipeline
		pm.GetImagesPath(), // published variants
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	log.WithFields(logrus.Fields{
		"base":   basePath,
		"images": pm.GetImagesPath(),
	}).Debug("Storage directories ready")

	return pm, nil
}

func (pm *PathManager) GetBasePath() string {
	return pm.baseStoragePath
}

// GetTempPath returns the temp directory, or a file inside it when name is set
func (pm *PathManager) GetTempPath(name string) string {
	if name == "" {
		return filepath.Join(pm.baseStoragePath, "temp")
	}
	return filepath.Join(pm.baseStoragePath, "temp", name)
}

// GetImagesPath is the flat directory holding every published variant
func (pm *PathManager) GetImagesPath() string {
	return filepath.Join(pm.baseStoragePath, "uploads", "images")
}

func (pm *PathManager) GetImagePath(fileName string) string {
	return filepath.Join(pm.GetImagesPath(), fileName)
}

// NewStagingPath returns a fresh staging directory name under dir
func NewStagingPath(dir string) string {
	return filepath.Join(dir, StagingPrefix+uuid.NewString())
}

// IsStagingDir reports whether a directory name is an atomic staging dir
func IsStagingDir(name string) bool {
	return strings.HasPrefix(name, StagingPrefix)
}

// NewBaseName returns a unique base name for an uploaded image
func NewBaseName() string {
	return fmt.Sprintf("%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// BatchBaseName is the base name given to the index-th image of a batch.
// batch comes from NewBaseName so two batches started in the same
// millisecond never share names.
func BatchBaseName(batch string, index int) string {
	return fmt.Sprintf("%s_%d", batch, index)
}
