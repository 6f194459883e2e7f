package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// jobsPath is the job collection path. Mutations invalidate every
// cached read whose key contains it, so stale job lists are evicted as
// soon as the collection changes.
const jobsPath = "/api/v1/jobs"

// CreateJob starts a new content-generation job for the given industry.
//
// The request bypasses the cache (it is a POST) and, on success, evicts
// all cached job reads so the next poll reflects the new job.
func (c *Client) CreateJob(ctx context.Context, industry string) (Job, error) {
	payload, err := json.Marshal(map[string]string{"industry": industry})
	if err != nil {
		return Job{}, fmt.Errorf("failed to encode create job request: %w", err)
	}

	data, err := c.Do(ctx, jobsPath, RequestOptions{Method: http.MethodPost, Body: payload}, CacheOptions{})
	if err != nil {
		return Job{}, err
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("failed to decode create job response: %w", err)
	}

	c.Invalidate(jobsPath)
	return job, nil
}

// CancelJob cancels a running job. Cached job reads are evicted on
// success.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	endpoint := fmt.Sprintf("%s/%s/cancel", jobsPath, jobID)
	if _, err := c.Do(ctx, endpoint, RequestOptions{Method: http.MethodPost}, CacheOptions{}); err != nil {
		return err
	}

	c.Invalidate(jobsPath)
	return nil
}

// DeleteJob removes a finished job. Cached job reads are evicted on
// success.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	endpoint := fmt.Sprintf("%s/%s", jobsPath, jobID)
	if _, err := c.Do(ctx, endpoint, RequestOptions{Method: http.MethodDelete}, CacheOptions{}); err != nil {
		return err
	}

	c.Invalidate(jobsPath)
	return nil
}
