package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"imgvault/config"
	"imgvault/pkg/models"
	"imgvault/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore keeps uploaded objects in a map
type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Name() string { return "memory" }

func (m *memoryStore) Upload(_ context.Context, key string, file *os.File) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memoryStore) Download(_ context.Context, key string, file *os.File) error {
	m.mu.Lock()
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return errors.New("no such object")
	}
	_, err := file.Write(data)
	return err
}

func (m *memoryStore) keys() []string {
	keys, _ := m.List(context.Background(), "")
	return keys
}

func setupBackup(t *testing.T) (*BackupService, *memoryStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, os.MkdirAll(dir, 0755))
	store := newMemoryStore()
	return newBackupServiceWithStore(config.Default(), store, dir, utils.NewNopLogger()), store, dir
}

func TestNewBackupServiceDisabled(t *testing.T) {
	cfg := config.Default()
	pm, err := utils.NewPathManager(t.TempDir(), utils.NewNopLogger())
	require.NoError(t, err)

	svc, err := NewBackupService(cfg, pm, utils.NewNopLogger())
	assert.NoError(t, err)
	assert.Nil(t, svc)

	_, err = NewBackupService(nil, pm, utils.NewNopLogger())
	assert.Error(t, err)
}

func TestNewBackupServiceMissingCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	cfg := config.Default()
	cfg.Backup.Enabled = true
	cfg.Backup.Provider = "aws"
	cfg.Backup.AWS.Bucket = "variants"
	pm, err := utils.NewPathManager(t.TempDir(), utils.NewNopLogger())
	require.NoError(t, err)

	svc, err := NewBackupService(cfg, pm, utils.NewNopLogger())
	assert.Error(t, err)
	assert.Nil(t, svc)
}

func TestBackupUploadsVariantsSkippingStaging(t *testing.T) {
	svc, store, dir := setupBackup(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_main.jpg"), []byte("main"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_medium.jpg"), []byte("medium"), 0644))
	staging := filepath.Join(dir, utils.StagingPrefix+"x")
	require.NoError(t, os.MkdirAll(staging, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "a_preview.jpg"), []byte("partial"), 0644))

	require.NoError(t, svc.Backup(context.Background()))

	assert.Equal(t, []string{"images/a_main.jpg", "images/a_medium.jpg"}, store.keys())
	status := svc.GetStatus()
	assert.Equal(t, 2, status.FilesUploaded)
	assert.NotNil(t, status.LastBackup)
	assert.Empty(t, status.LastError)
}

func TestBackupManifest(t *testing.T) {
	svc, store, dir := setupBackup(t)
	main := filepath.Join(dir, "b_main.jpg")
	require.NoError(t, os.WriteFile(main, []byte("main"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other_main.jpg"), []byte("x"), 0644))

	m := &models.OptimizationManifest{BaseName: "b", Main: models.VariantResult{Name: models.TierMain, Path: main}}
	require.NoError(t, svc.BackupManifest(context.Background(), m))

	assert.Equal(t, []string{"images/b_main.jpg"}, store.keys())
}

func TestBackupRecordsUploadError(t *testing.T) {
	svc, store, dir := setupBackup(t)
	store.uploadErr = errors.New("denied")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c_main.jpg"), []byte("main"), 0644))

	err := svc.Backup(context.Background())
	assert.Error(t, err)
	assert.Contains(t, svc.GetStatus().LastError, "denied")
}

func TestRestore(t *testing.T) {
	svc, store, dir := setupBackup(t)
	store.objects["images/r_main.jpg"] = []byte("main")
	store.objects["images/nested/r_preview.jpg"] = []byte("preview")
	store.objects["elsewhere/ignored.jpg"] = []byte("x")

	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, svc.Restore(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "r_main.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "main", string(data))
	assert.FileExists(t, filepath.Join(dir, "r_preview.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "ignored.jpg"))
	assert.Equal(t, 2, svc.GetStatus().FilesRestored)
}
