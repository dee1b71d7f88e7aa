// Package applier calls the Applier service, which owns job applications.
package applier

import (
	"context"
	"net/url"

	httpclient "ergasia-workers/internal/common/http"
	"ergasia-workers/internal/models"
)

const ServiceName = "applier"

type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

type applierRequest struct {
	UserID string `json:"userId"`
	JobID  string `json:"jobId"`
}

// Apply records the application. A repeat is answered with
// DUPLICATE_APPLICATION by the service.
func (c *Client) Apply(ctx context.Context, userID, jobID string) (*models.Applier, error) {
	var out models.Applier
	if err := c.http.Post(ctx, "/appliers", applierRequest{UserID: userID, JobID: jobID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) HasApplied(ctx context.Context, userID, jobID string) (bool, error) {
	var out struct {
		Applied bool `json:"applied"`
	}
	query := url.Values{"userId": {userID}, "jobId": {jobID}}
	if err := c.http.Get(ctx, "/appliers/exists", query, &out); err != nil {
		return false, err
	}
	return out.Applied, nil
}

func (c *Client) Accept(ctx context.Context, userID, jobID string) error {
	return c.http.Post(ctx, "/appliers/accept", applierRequest{UserID: userID, JobID: jobID}, nil)
}

func (c *Client) Reject(ctx context.Context, userID, jobID string) error {
	return c.http.Post(ctx, "/appliers/reject", applierRequest{UserID: userID, JobID: jobID}, nil)
}

func (c *Client) ListByUser(ctx context.Context, userID string) ([]models.Applier, error) {
	return c.list(ctx, url.Values{"userId": {userID}})
}

func (c *Client) ListByJob(ctx context.Context, jobID string) ([]models.Applier, error) {
	return c.list(ctx, url.Values{"jobId": {jobID}})
}

func (c *Client) list(ctx context.Context, query url.Values) ([]models.Applier, error) {
	var out []models.Applier
	if err := c.http.Get(ctx, "/appliers", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}
