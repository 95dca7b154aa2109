// pkg/handlers/mocks.go
package handlers

import (
	"context"

	"imgvault/pkg/cache"
	"imgvault/pkg/models"

	"github.com/stretchr/testify/mock"
)

type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) Optimize(ctx context.Context, sourcePath, outputDir, baseName string, opts models.OptimizeOptions) (*models.OptimizationManifest, error) {
	args := m.Called(ctx, sourcePath, outputDir, baseName, opts)
	manifest, _ := args.Get(0).(*models.OptimizationManifest)
	return manifest, args.Error(1)
}

func (m *MockImageService) ValidateImage(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}

func (m *MockImageService) GetImageInfo(path string) *models.ImageInfo {
	args := m.Called(path)
	info, _ := args.Get(0).(*models.ImageInfo)
	return info
}

func (m *MockImageService) GeneratePlaceholder(path string) string {
	args := m.Called(path)
	return args.String(0)
}

func (m *MockImageService) GetManifest(baseName string) (*models.OptimizationManifest, error) {
	args := m.Called(baseName)
	manifest, _ := args.Get(0).(*models.OptimizationManifest)
	return manifest, args.Error(1)
}

func (m *MockImageService) DeleteImage(ctx context.Context, baseName string) error {
	args := m.Called(ctx, baseName)
	return args.Error(0)
}

// MockJobService implements JobServiceInterface for testing
type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) Submit(ctx context.Context, job *models.OptimizeJob) error {
	args := m.Called(ctx, job)
	if args.Error(0) == nil && job.ID == "" {
		job.ID = "00000000-0000-0000-0000-000000000001"
	}
	return args.Error(0)
}

func (m *MockJobService) Status(id string) (*models.JobStatus, bool) {
	args := m.Called(id)
	status, _ := args.Get(0).(*models.JobStatus)
	return status, args.Bool(1)
}

// MockCache implements CacheInterface for testing
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Stats() cache.Stats {
	args := m.Called()
	return args.Get(0).(cache.Stats)
}

func (m *MockCache) DeletePattern(glob string) int {
	args := m.Called(glob)
	return args.Int(0)
}

func (m *MockCache) Clear() {
	m.Called()
}

// MockBackupService implements BackupServiceInterface for testing
type MockBackupService struct {
	mock.Mock
}

func (m *MockBackupService) Backup(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackupService) Restore(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackupService) GetStatus() models.BackupStatus {
	args := m.Called()
	return args.Get(0).(models.BackupStatus)
}
