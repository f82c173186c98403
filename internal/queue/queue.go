package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// JobType identifies the kind of work a job carries.
type JobType string

const (
	// JobTypeStatsRefresh recomputes cached network aggregates for a partner
	// and its sponsor chain.
	JobTypeStatsRefresh JobType = "network_stats_refresh"
)

// DefaultMaxRetries bounds how often a failing job is retried.
const DefaultMaxRetries = 3

// Job is a unit of queued background work.
type Job struct {
	ID         string          `json:"id"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
}

// JobHandler processes one dequeued job.
type JobHandler func(ctx context.Context, job Job) error

// RedisQueue is a small redis-backed job queue. Jobs are pushed onto a
// per-type list and consumed by a single worker loop; failures are re-queued
// with exponential backoff until MaxRetries is exhausted.
type RedisQueue struct {
	client   *redis.Client
	mu       sync.RWMutex
	handlers map[JobType]JobHandler
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewRedisQueue creates a new Redis queue
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:   client,
		handlers: make(map[JobType]JobHandler),
		stop:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type.
func (q *RedisQueue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue adds a job to the queue and returns its id.
func (q *RedisQueue) Enqueue(ctx context.Context, jobType JobType, payload interface{}) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Payload:    payloadBytes,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now(),
	}
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, queueKey(jobType), jobBytes).Err(); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job.ID, nil
}

// StartWorker consumes jobs for every registered type until Stop is called.
func (q *RedisQueue) StartWorker(ctx context.Context) {
	q.mu.RLock()
	types := make([]string, 0, len(q.handlers))
	for jobType := range q.handlers {
		types = append(types, queueKey(jobType))
	}
	q.mu.RUnlock()

	if len(types) == 0 {
		log.Println("queue: no handlers registered, worker not started")
		return
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-q.stop:
				return
			case <-ctx.Done():
				return
			default:
			}

			result, err := q.client.BRPop(ctx, 5*time.Second, types...).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
					continue
				}
				log.Printf("queue: dequeue error: %v", err)
				time.Sleep(time.Second)
				continue
			}
			if len(result) < 2 {
				continue
			}

			var job Job
			if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
				log.Printf("queue: dropping malformed job: %v", err)
				continue
			}
			q.process(ctx, job)
		}
	}()
}

// Stop shuts the worker loop down and waits for in-flight work.
func (q *RedisQueue) Stop() {
	close(q.stop)
	q.wg.Wait()
}

// process runs the handler for one job and re-queues it on failure.
func (q *RedisQueue) process(ctx context.Context, job Job) {
	q.mu.RLock()
	handler, ok := q.handlers[job.Type]
	q.mu.RUnlock()
	if !ok {
		log.Printf("queue: no handler for job type %s, dropping job %s", job.Type, job.ID)
		return
	}

	if err := handler(ctx, job); err != nil {
		if job.RetryCount >= job.MaxRetries {
			log.Printf("queue: job %s failed permanently after %d retries: %v", job.ID, job.RetryCount, err)
			return
		}

		job.RetryCount++
		log.Printf("queue: job %s failed (attempt %d/%d), re-queueing: %v", job.ID, job.RetryCount, job.MaxRetries, err)
		time.Sleep(backoff(job.RetryCount))

		jobBytes, marshalErr := json.Marshal(job)
		if marshalErr != nil {
			log.Printf("queue: failed to re-marshal job %s: %v", job.ID, marshalErr)
			return
		}
		if pushErr := q.client.LPush(ctx, queueKey(job.Type), jobBytes).Err(); pushErr != nil {
			log.Printf("queue: failed to re-queue job %s: %v", job.ID, pushErr)
		}
	}
}

// queueKey builds the redis list key for a job type.
func queueKey(jobType JobType) string {
	return fmt.Sprintf("backoffice:queue:%s", jobType)
}

// backoff returns the delay before a retry attempt.
func backoff(retry int) time.Duration {
	seconds := math.Min(60, 2*math.Pow(2, float64(retry)))
	return time.Duration(seconds) * time.Second
}
