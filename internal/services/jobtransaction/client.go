// Package jobtransaction calls the JobTransaction service, which owns a job's
// freelancer roster and its escrow.
package jobtransaction

import (
	"context"

	httpclient "ergasia-workers/internal/common/http"
	"ergasia-workers/internal/models"
)

const ServiceName = "job_transaction"

type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

func jobPath(jobID string) string {
	return "/job-transactions/" + httpclient.Segment(jobID)
}

type appendRequest struct {
	UserID string `json:"userId"`
}

// AppendFreelancer adds userID to the roster. The service enforces capacity
// and answers SLOTS_FULL when the roster is at job.Slots.
func (c *Client) AppendFreelancer(ctx context.Context, jobID, userID string) error {
	return c.http.Post(ctx, jobPath(jobID)+"/freelancers", appendRequest{UserID: userID}, nil)
}

func (c *Client) IsRegistered(ctx context.Context, jobID, userID string) (bool, error) {
	var out struct {
		Registered bool `json:"registered"`
	}
	if err := c.http.Get(ctx, jobPath(jobID)+"/freelancers/"+httpclient.Segment(userID), nil, &out); err != nil {
		return false, err
	}
	return out.Registered, nil
}

func (c *Client) ListAccepted(ctx context.Context, jobID string) ([]models.User, error) {
	var out []models.User
	if err := c.http.Get(ctx, jobPath(jobID)+"/freelancers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type debitRequest struct {
	Amount int64 `json:"amount"`
}

// DebitForStart moves amount from the owner's balance into the job's escrow.
// It is not idempotent.
func (c *Client) DebitForStart(ctx context.Context, jobID string, amount int64) (*models.Transaction, error) {
	var out models.Transaction
	if err := c.http.Post(ctx, jobPath(jobID)+"/debit", debitRequest{Amount: amount}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EscrowBalance reports the amount currently held for the job.
func (c *Client) EscrowBalance(ctx context.Context, jobID string) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := c.http.Get(ctx, jobPath(jobID)+"/escrow", nil, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// PayoutFreelancers releases the escrow to the roster. Releasing an empty
// escrow is a no-op on the service side.
func (c *Client) PayoutFreelancers(ctx context.Context, jobID string) (*models.Payout, error) {
	var out models.Payout
	if err := c.http.Post(ctx, jobPath(jobID)+"/payout", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
