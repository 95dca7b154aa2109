package service

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"imgvault/config"
	"imgvault/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGC(t *testing.T) (*GCService, *utils.PathManager) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.MaxSizeGB = 1
	log := utils.NewNopLogger()
	pm, err := utils.NewPathManager(t.TempDir(), log)
	require.NoError(t, err)
	return NewGCService(cfg, pm, log), pm
}

func writeAged(t *testing.T, path string, data string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, old, old))
}

func TestGCRemovesOnlyStaleLeftovers(t *testing.T) {
	gc, pm := setupGC(t)
	images := pm.GetImagesPath()

	oldStaging := filepath.Join(images, utils.StagingPrefix+"old")
	writeAged(t, filepath.Join(oldStaging, "x_main.jpg"), "12345", 2*time.Hour)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldStaging, old, old))

	freshStaging := filepath.Join(images, utils.StagingPrefix+"fresh")
	writeAged(t, filepath.Join(freshStaging, "y_main.jpg"), "1", 0)

	writeAged(t, pm.GetTempPath("stale.jpg"), "abc", 3*time.Hour)
	writeAged(t, pm.GetTempPath("recent.jpg"), "abc", time.Minute)
	writeAged(t, filepath.Join(images, "kept_main.jpg"), "variant", 48*time.Hour)

	result, err := gc.Run(false)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 1, result.StagingDirsDeleted)
	assert.Equal(t, int64(5), result.StagingBytes)
	assert.Equal(t, 1, result.TempFilesDeleted)
	assert.Equal(t, int64(3), result.TempBytes)
	assert.Equal(t, int64(8), result.TotalBytesReclaimed)

	assert.NoDirExists(t, oldStaging)
	assert.DirExists(t, freshStaging)
	assert.NoFileExists(t, pm.GetTempPath("stale.jpg"))
	assert.FileExists(t, pm.GetTempPath("recent.jpg"))
	assert.FileExists(t, filepath.Join(images, "kept_main.jpg"))
}

func TestGCDryRunKeepsFiles(t *testing.T) {
	gc, pm := setupGC(t)
	writeAged(t, pm.GetTempPath("stale.jpg"), "abc", 3*time.Hour)

	result, err := gc.Run(true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TempFilesDeleted)
	assert.FileExists(t, pm.GetTempPath("stale.jpg"))
}

func TestGCConcurrentRunReturnsNil(t *testing.T) {
	gc, _ := setupGC(t)
	gc.mu.Lock()
	gc.running = true
	gc.mu.Unlock()

	result, err := gc.Run(false)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestGCParallelRunsDoNotOverlap(t *testing.T) {
	gc, _ := setupGC(t)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gc.Run(true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.False(t, gc.running)
}

func TestGCStats(t *testing.T) {
	gc, pm := setupGC(t)
	images := pm.GetImagesPath()
	writeAged(t, filepath.Join(images, "a_main.jpg"), "1234", 0)
	writeAged(t, filepath.Join(images, "a_medium.jpg"), "12", 0)
	require.NoError(t, os.MkdirAll(filepath.Join(images, utils.StagingPrefix+"z"), 0755))
	writeAged(t, pm.GetTempPath("upload.jpg"), "123", 0)

	stats, err := gc.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.VariantCount)
	assert.Equal(t, int64(6), stats.VariantsSize)
	assert.Equal(t, 1, stats.StagingDirCount)
	assert.Equal(t, 1, stats.TempFileCount)
	assert.Equal(t, int64(9), stats.TotalSize)
	assert.Equal(t, int64(1)<<30, stats.MaxSize)
}
