// pkg/services/worker.go
package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"imgvault/config"
	"imgvault/pkg/cache"
	"imgvault/pkg/metrics"
	"imgvault/pkg/models"
	"imgvault/pkg/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ManifestBackuper mirrors the variants of one manifest off-site
type ManifestBackuper interface {
	BackupManifest(ctx context.Context, manifest *models.OptimizationManifest) error
}

// Worker runs queued optimize jobs and records their status in the cache
type Worker struct {
	queue       JobQueue
	images      *ImageService
	cache       *cache.TTLCache[any]
	backup      ManifestBackuper
	outputDir   string
	concurrency int
	log         *utils.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(cfg *config.Config, queue JobQueue, images *ImageService, c *cache.TTLCache[any], outputDir string, log *utils.Logger) *Worker {
	return &Worker{
		queue:       queue,
		images:      images,
		cache:       c,
		outputDir:   outputDir,
		concurrency: max(cfg.Images.Workers, 1),
		log:         log,
	}
}

// WithBackup enables the per-job backup of produced variants
func (w *Worker) WithBackup(b ManifestBackuper) *Worker {
	w.backup = b
	return w
}

// Start launches the worker goroutines. Calling it twice is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i)
	}

	w.log.WithFunc().WithField("workers", w.concurrency).Info("Optimize workers started")
}

// Stop cancels the workers and waits for in-flight jobs to return
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	w.wg.Wait()
	w.log.WithFunc().Info("Optimize workers stopped")
}

// Submit records a queued status and hands the job to the queue
func (w *Worker) Submit(ctx context.Context, job *models.OptimizeJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	w.setStatus(&models.JobStatus{ID: job.ID, State: models.JobQueued, BaseName: job.BaseName})
	if err := w.queue.Enqueue(ctx, job); err != nil {
		w.cache.Delete(JobKey(job.ID))
		return err
	}
	return nil
}

// Status returns the last recorded status of a job
func (w *Worker) Status(id string) (*models.JobStatus, bool) {
	return cache.GetAs[*models.JobStatus](w.cache, JobKey(id))
}

func (w *Worker) run(ctx context.Context, id int) {
	log := w.log.WithFunc().WithField("worker", id)
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				return
			}
			log.WithError(err).Warn("Failed to dequeue job")
			metrics.RecordError("dequeue")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *models.OptimizeJob) {
	log := w.log.WithFunc().WithFields(logrus.Fields{
		"job":      job.ID,
		"baseName": job.BaseName,
	})

	w.setStatus(&models.JobStatus{ID: job.ID, State: models.JobProcessing, BaseName: job.BaseName})

	manifest, err := w.images.Optimize(ctx, job.SourcePath, w.outputDir, job.BaseName, job.Options)

	if rmErr := os.Remove(job.SourcePath); rmErr != nil && !os.IsNotExist(rmErr) {
		log.WithError(rmErr).Warn("Failed to remove uploaded source")
	}

	if err != nil {
		w.setStatus(&models.JobStatus{ID: job.ID, State: models.JobFailed, BaseName: job.BaseName, Error: err.Error()})
		metrics.RecordJob(string(models.JobFailed))
		return
	}

	w.setStatus(&models.JobStatus{ID: job.ID, State: models.JobDone, BaseName: job.BaseName, Manifest: manifest})
	metrics.RecordJob(string(models.JobDone))
	log.Info("Job completed")

	if w.backup != nil {
		if err := w.backup.BackupManifest(ctx, manifest); err != nil {
			log.WithError(err).Warn("Failed to back up variants")
			metrics.RecordError("backup")
		}
	}
}

func (w *Worker) setStatus(status *models.JobStatus) {
	status.UpdatedAt = time.Now()
	w.cache.Set(JobKey(status.ID), status, cache.TTLDay)
}
