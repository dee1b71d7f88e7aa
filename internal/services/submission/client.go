// Package submission calls the Submission service, which owns work
// deliverables and their review status.
package submission

import (
	"context"
	"net/url"

	httpclient "ergasia-workers/internal/common/http"
	"ergasia-workers/internal/models"
)

const ServiceName = "submission"

type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

func (c *Client) Create(ctx context.Context, in models.NewSubmission) (*models.Submission, error) {
	var out models.Submission
	if err := c.http.Post(ctx, "/submissions", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Get(ctx context.Context, submissionID string) (*models.Submission, error) {
	var out models.Submission
	if err := c.http.Get(ctx, "/submissions/"+httpclient.Segment(submissionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type statusRequest struct {
	Status        models.SubmissionStatus `json:"status"`
	RejectMessage string                  `json:"rejectMessage,omitempty"`
}

// UpdateStatus records the review decision. The service answers 409 when the
// submission was already reviewed.
func (c *Client) UpdateStatus(ctx context.Context, submissionID string, status models.SubmissionStatus, rejectMessage string) error {
	req := statusRequest{Status: status, RejectMessage: rejectMessage}
	return c.http.Patch(ctx, "/submissions/"+httpclient.Segment(submissionID)+"/status", req, nil)
}

// ListByJob lists a job's submissions, optionally narrowed to one status.
func (c *Client) ListByJob(ctx context.Context, jobID string, status models.SubmissionStatus) ([]models.Submission, error) {
	query := url.Values{"jobId": {jobID}}
	if status != "" {
		query.Set("status", string(status))
	}
	var out []models.Submission
	if err := c.http.Get(ctx, "/submissions", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// File is a submission's uploaded deliverable.
type File struct {
	Name string `json:"fileName"`
	Data []byte `json:"file"`
}

func (c *Client) GetFile(ctx context.Context, submissionID string) (*File, error) {
	var out File
	if err := c.http.Get(ctx, "/submissions/"+httpclient.Segment(submissionID)+"/file", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
