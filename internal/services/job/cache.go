package job

import (
	"context"
	"encoding/json"
	"time"

	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// Source is the uncached job API.
type Source interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	SetStatus(ctx context.Context, jobID string, status models.JobStatus) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Job, error)
}

// CachedClient is a read-through Redis cache in front of the Job service.
// Guards read through it, except those in front of a debit or payout, which
// use GetJobFresh. Every status write drops the cached snapshot.
// Redis failures degrade to direct reads.
type CachedClient struct {
	source Source
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedClient(source Source, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedClient {
	return &CachedClient{source: source, redis: rdb, ttl: ttl, logger: log}
}

func cacheKey(jobID string) string {
	return "job:" + jobID
}

func (c *CachedClient) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	key := cacheKey(jobID)

	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var job models.Job
		if jsonErr := json.Unmarshal(raw, &job); jsonErr == nil {
			return &job, nil
		}
		c.logger.Warn("Dropping undecodable job snapshot", map[string]interface{}{"jobId": jobID})
		c.redis.Del(ctx, key)
	case err != redis.Nil:
		c.logger.Warn("Job cache read failed", map[string]interface{}{"jobId": jobID, "error": err.Error()})
	}

	return c.GetJobFresh(ctx, jobID)
}

// GetJobFresh skips the snapshot and reads the Job service, then refreshes
// the snapshot. Guards in front of money movements read this way.
func (c *CachedClient) GetJobFresh(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := c.source.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(job); jsonErr == nil {
		if setErr := c.redis.Set(ctx, cacheKey(jobID), payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("Job cache write failed", map[string]interface{}{"jobId": jobID, "error": setErr.Error()})
		}
	}
	return job, nil
}

// SetStatus writes through and invalidates, even when the write fails, since
// a failed call may still have landed.
func (c *CachedClient) SetStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	err := c.source.SetStatus(ctx, jobID, status)
	c.Invalidate(ctx, jobID)
	return err
}

func (c *CachedClient) ListByOwner(ctx context.Context, ownerID string) ([]models.Job, error) {
	return c.source.ListByOwner(ctx, ownerID)
}

func (c *CachedClient) Invalidate(ctx context.Context, jobID string) {
	if err := c.redis.Del(ctx, cacheKey(jobID)).Err(); err != nil {
		c.logger.Warn("Job cache invalidation failed", map[string]interface{}{"jobId": jobID, "error": err.Error()})
	}
}
