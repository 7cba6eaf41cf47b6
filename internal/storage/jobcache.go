package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"casedesk/internal/models"
	"casedesk/internal/redis"
)

// Polling clients hammer the job read endpoints; a short-lived cache
// absorbs that without serving stale worker updates for long. The TTL
// stays small because the worker fleet mutates rows out-of-band.
const jobCacheTTL = 10 * time.Second

// JobCache is an optional redis layer in front of JobStore reads.
// A nil cache (redis disabled) is always a miss.
type JobCache struct {
	client *redis.Client
}

// NewJobCache wraps the shared redis client; client may be nil.
func NewJobCache(client *redis.Client) *JobCache {
	return &JobCache{client: client}
}

func jobCacheKey(teamID, jobID string) string {
	return fmt.Sprintf("job:%s:%s", teamID, jobID)
}

// Load returns the cached job, or false on miss or any cache failure.
func (c *JobCache) Load(ctx context.Context, teamID, jobID string) (*models.Job, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, jobCacheKey(teamID, jobID))
	if err != nil {
		if err != redis.ErrCacheMiss {
			log.Printf("job cache load failed: %v", err)
		}
		return nil, false
	}
	var job models.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Printf("job cache decode failed: %v", err)
		return nil, false
	}
	if job.TeamID != teamID {
		return nil, false
	}
	return &job, true
}

// Store caches the job under its team-scoped key. Failures only log.
func (c *JobCache) Store(ctx context.Context, job *models.Job) {
	if c == nil || c.client == nil || job == nil {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		log.Printf("job cache encode failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, jobCacheKey(job.TeamID, job.JobID), data, jobCacheTTL); err != nil {
		log.Printf("job cache store failed: %v", err)
	}
}

// Invalidate drops a cached job, e.g. right after dispatch.
func (c *JobCache) Invalidate(ctx context.Context, teamID, jobID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, jobCacheKey(teamID, jobID)); err != nil && err != redis.ErrCacheMiss {
		log.Printf("job cache invalidate failed: %v", err)
	}
}
