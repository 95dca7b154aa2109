package service

import (
	"context"
	"testing"
	"time"

	"imgvault/config"
	"imgvault/pkg/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &models.OptimizeJob{ID: "1"}))
	require.NoError(t, q.Enqueue(ctx, &models.OptimizeJob{ID: "2"}))
	assert.Equal(t, 2, q.Len())

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", job.ID)

	job, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", job.ID)
}

func TestMemoryQueueFullRespectsContext(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), &models.OptimizeJob{ID: "1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, &models.OptimizeJob{ID: "2"}), context.DeadlineExceeded)
}

func TestMemoryQueueClose(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Enqueue(context.Background(), &models.OptimizeJob{}), ErrQueueClosed)
	_, err := q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func newTestRedisQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewRedisQueueWithClient(client, "test:jobs")
	q.pollTimeout = 50 * time.Millisecond
	t.Cleanup(func() { _ = q.Close() })
	return q, mr
}

func TestRedisQueueRoundTrip(t *testing.T) {
	q, mr := newTestRedisQueue(t)
	ctx := context.Background()

	job := &models.OptimizeJob{
		ID:         "job-1",
		SourcePath: "/tmp/upload.jpg",
		BaseName:   "img1",
		Options:    models.DefaultOptimizeOptions(),
	}
	require.NoError(t, q.Enqueue(ctx, job))
	require.NoError(t, q.Enqueue(ctx, &models.OptimizeJob{ID: "job-2"}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, mr.Exists("test:jobs"))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, "img1", got.BaseName)
	assert.True(t, got.Options.GenerateThumbnail)

	got, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-2", got.ID)
}

func TestRedisQueueDequeueCancelled(t *testing.T) {
	q, _ := newTestRedisQueue(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.Error(t, err)
}

func TestRedisQueueClosed(t *testing.T) {
	q, _ := newTestRedisQueue(t)
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Enqueue(context.Background(), &models.OptimizeJob{}), ErrQueueClosed)
	_, err := q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestNewJobQueue(t *testing.T) {
	cfg := config.Default()
	q, err := NewJobQueue(cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryQueue{}, q)

	mr := miniredis.RunT(t)
	cfg.Queue.Driver = "redis"
	cfg.Queue.RedisURL = "redis://" + mr.Addr()
	q, err = NewJobQueue(cfg)
	require.NoError(t, err)
	assert.IsType(t, &RedisQueue{}, q)
	require.NoError(t, q.(*RedisQueue).Ping(context.Background()))
	_ = q.Close()

	cfg.Queue.Driver = "kafka"
	_, err = NewJobQueue(cfg)
	assert.Error(t, err)
}
