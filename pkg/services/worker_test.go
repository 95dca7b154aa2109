package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"imgvault/config"
	"imgvault/pkg/cache"
	"imgvault/pkg/models"
	"imgvault/pkg/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackuper struct {
	mu    sync.Mutex
	bases []string
	err   error
}

func (r *recordingBackuper) BackupManifest(_ context.Context, m *models.OptimizationManifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bases = append(r.bases, m.BaseName)
	return r.err
}

func (r *recordingBackuper) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.bases...)
}

func setupWorker(t *testing.T) (*Worker, *cache.TTLCache[any], string) {
	t.Helper()
	cfg := config.Default()
	c := cache.New[any](cache.Options{MaxSize: 100})
	log := utils.NewNopLogger()
	out := filepath.Join(t.TempDir(), "images")

	w := NewWorker(cfg, NewMemoryQueue(10), NewImageService(cfg, c, log), c, out, log)
	return w, c, out
}

func waitForState(t *testing.T, w *Worker, id string, state models.JobState) *models.JobStatus {
	t.Helper()
	var status *models.JobStatus
	require.Eventually(t, func() bool {
		s, ok := w.Status(id)
		if !ok {
			return false
		}
		status = s
		return s.State == state
	}, 10*time.Second, 10*time.Millisecond)
	return status
}

func TestWorkerProcessesJob(t *testing.T) {
	w, _, out := setupWorker(t)
	backup := &recordingBackuper{}
	w.WithBackup(backup)

	src := writeJPEG(t, t.TempDir(), "upload.jpg", 640, 480, 90)

	w.Start(context.Background())
	defer w.Stop()

	job := &models.OptimizeJob{SourcePath: src, BaseName: "queued", Options: models.DefaultOptimizeOptions()}
	require.NoError(t, w.Submit(context.Background(), job))
	require.NotEmpty(t, job.ID)

	status := waitForState(t, w, job.ID, models.JobDone)
	require.NotNil(t, status.Manifest)
	assert.Equal(t, "queued", status.Manifest.BaseName)
	assert.FileExists(t, filepath.Join(out, "queued_main.jpg"))

	// the uploaded source is removed once processed
	assert.NoFileExists(t, src)
	assert.Eventually(t, func() bool { return len(backup.seen()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestWorkerRecordsFailure(t *testing.T) {
	w, _, _ := setupWorker(t)
	bad := filepath.Join(t.TempDir(), "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0644))

	w.Start(context.Background())
	defer w.Stop()

	job := &models.OptimizeJob{ID: "fail-1", SourcePath: bad, BaseName: "bad"}
	require.NoError(t, w.Submit(context.Background(), job))

	status := waitForState(t, w, "fail-1", models.JobFailed)
	assert.NotEmpty(t, status.Error)
	assert.Nil(t, status.Manifest)
}

func TestWorkerBackupFailureKeepsJobDone(t *testing.T) {
	w, _, _ := setupWorker(t)
	w.WithBackup(&recordingBackuper{err: errors.New("bucket gone")})
	src := writeJPEG(t, t.TempDir(), "upload.jpg", 320, 240, 90)

	w.Start(context.Background())
	defer w.Stop()

	job := &models.OptimizeJob{ID: "b-1", SourcePath: src, BaseName: "b1"}
	require.NoError(t, w.Submit(context.Background(), job))
	waitForState(t, w, "b-1", models.JobDone)
}

func TestWorkerSubmitOnClosedQueue(t *testing.T) {
	w, c, _ := setupWorker(t)
	require.NoError(t, w.queue.Close())

	err := w.Submit(context.Background(), &models.OptimizeJob{ID: "late"})
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.False(t, c.Has(JobKey("late")))
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	w, _, _ := setupWorker(t)
	w.Stop() // never started

	w.Start(context.Background())
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func TestWorkerStatusIsInstanceLocal(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	log := utils.NewNopLogger()
	out := filepath.Join(t.TempDir(), "images")

	newInstance := func() *Worker {
		q := NewRedisQueueWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "shared:jobs")
		q.pollTimeout = 50 * time.Millisecond
		t.Cleanup(func() { _ = q.Close() })
		c := cache.New[any](cache.Options{MaxSize: 100})
		return NewWorker(cfg, q, NewImageService(cfg, c, log), c, out, log)
	}
	producer, consumer := newInstance(), newInstance()

	src := writeJPEG(t, t.TempDir(), "upload.jpg", 320, 240, 90)

	consumer.Start(context.Background())
	defer consumer.Stop()

	job := &models.OptimizeJob{ID: "shared-1", SourcePath: src, BaseName: "shared"}
	require.NoError(t, producer.Submit(context.Background(), job))
	waitForState(t, consumer, "shared-1", models.JobDone)

	// the submitting instance never learns the outcome
	status, ok := producer.Status("shared-1")
	require.True(t, ok)
	assert.Equal(t, models.JobQueued, status.State)
}
