// Package invitation calls the Invitation service.
package invitation

import (
	"context"
	"net/url"

	"ergasia-workers/internal/common/errors"
	httpclient "ergasia-workers/internal/common/http"
	"ergasia-workers/internal/models"
)

const ServiceName = "invitation"

type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

// FindByJobAndUser returns the invitation of userID to jobID, or nil when none
// exists.
func (c *Client) FindByJobAndUser(ctx context.Context, jobID, userID string) (*models.Invitation, error) {
	var out models.Invitation
	query := url.Values{"jobId": {jobID}, "userId": {userID}}
	err := c.http.Get(ctx, "/invitations/search", query, &out)
	if errors.HasCode(err, errors.ErrCodeResourceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) Get(ctx context.Context, invitationID string) (*models.Invitation, error) {
	var out models.Invitation
	if err := c.http.Get(ctx, "/invitations/"+httpclient.Segment(invitationID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type createRequest struct {
	JobID     string `json:"jobId"`
	InviterID string `json:"inviterId"`
	InviteeID string `json:"inviteeId"`
}

func (c *Client) Create(ctx context.Context, jobID, inviterID, inviteeID string) (*models.Invitation, error) {
	var out models.Invitation
	req := createRequest{JobID: jobID, InviterID: inviterID, InviteeID: inviteeID}
	if err := c.http.Post(ctx, "/invitations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type answerRequest struct {
	UserID string `json:"userId"`
}

func (c *Client) Accept(ctx context.Context, userID, invitationID string) error {
	return c.http.Post(ctx, "/invitations/"+httpclient.Segment(invitationID)+"/accept", answerRequest{UserID: userID}, nil)
}

func (c *Client) Reject(ctx context.Context, userID, invitationID string) error {
	return c.http.Post(ctx, "/invitations/"+httpclient.Segment(invitationID)+"/reject", answerRequest{UserID: userID}, nil)
}

func (c *Client) ListByUser(ctx context.Context, userID string) ([]models.Invitation, error) {
	var out []models.Invitation
	if err := c.http.Get(ctx, "/invitations", url.Values{"userId": {userID}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
