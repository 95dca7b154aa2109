// pkg/services/queue.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"imgvault/config"
	"imgvault/pkg/models"

	"github.com/redis/go-redis/v9"
)

var ErrQueueClosed = errors.New("queue closed")

// JobQueue carries optimize jobs from the HTTP layer to the workers
type JobQueue interface {
	Enqueue(ctx context.Context, job *models.OptimizeJob) error
	Dequeue(ctx context.Context) (*models.OptimizeJob, error)
	Close() error
}

// NewJobQueue builds the queue selected by the config
func NewJobQueue(cfg *config.Config) (JobQueue, error) {
	switch cfg.Queue.Driver {
	case "redis":
		return NewRedisQueue(cfg.Queue.RedisURL, cfg.Queue.Key)
	case "memory", "":
		return NewMemoryQueue(cfg.Queue.Capacity), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}

// MemoryQueue is a bounded in-process queue
type MemoryQueue struct {
	jobs      chan *models.OptimizeJob
	closed    chan struct{}
	closeOnce sync.Once
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryQueue{
		jobs:   make(chan *models.OptimizeJob, capacity),
		closed: make(chan struct{}),
	}
}

// Enqueue blocks while the queue is full
func (q *MemoryQueue) Enqueue(ctx context.Context, job *models.OptimizeJob) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*models.OptimizeJob, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-q.closed:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len is the number of jobs waiting
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.closed) })
	return nil
}

// RedisQueue is a list-backed queue that survives a server restart.
// It serves a single server instance: job status lives in that instance's
// cache and job sources in its temp dir, so several instances may only
// share a key when they also share the storage path.
type RedisQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
	closed      chan struct{}
	closeOnce   sync.Once
}

// NewRedisQueue creates a queue from a redis:// URL
func NewRedisQueue(url, key string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisQueueWithClient(redis.NewClient(opts), key), nil
}

func NewRedisQueueWithClient(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{
		client:      client,
		key:         key,
		pollTimeout: time.Second,
		closed:      make(chan struct{}),
	}
}

// Ping checks the connection to Redis
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *models.OptimizeJob) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

// Dequeue polls with BRPOP so cancellation is noticed within pollTimeout
func (q *RedisQueue) Dequeue(ctx context.Context) (*models.OptimizeJob, error) {
	for {
		select {
		case <-q.closed:
			return nil, ErrQueueClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			select {
			case <-q.closed:
				return nil, ErrQueueClosed
			default:
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		// res is [key, value]
		var job models.OptimizeJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		return &job, nil
	}
}

// Len is the number of jobs waiting in the list
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func (q *RedisQueue) Close() error {
	var err error
	q.closeOnce.Do(func() {
		close(q.closed)
		err = q.client.Close()
	})
	return err
}
