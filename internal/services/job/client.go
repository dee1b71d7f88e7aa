// Package job calls the Job service, which owns job records and their status.
package job

import (
	"context"
	"net/url"

	httpclient "ergasia-workers/internal/common/http"
	"ergasia-workers/internal/models"
)

const ServiceName = "job"

type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

func (c *Client) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := c.http.Get(ctx, "/jobs/"+httpclient.Segment(jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobFresh is GetJob; the plain client holds no snapshot.
func (c *Client) GetJobFresh(ctx context.Context, jobID string) (*models.Job, error) {
	return c.GetJob(ctx, jobID)
}

type statusRequest struct {
	Status models.JobStatus `json:"status"`
}

// SetStatus moves the job to status. The service rejects illegal transitions
// with INVALID_STATE.
func (c *Client) SetStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	return c.http.Patch(ctx, "/jobs/"+httpclient.Segment(jobID)+"/status", statusRequest{Status: status}, nil)
}

func (c *Client) ListByOwner(ctx context.Context, ownerID string) ([]models.Job, error) {
	var jobs []models.Job
	if err := c.http.Get(ctx, "/jobs", url.Values{"ownerId": {ownerID}}, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}
