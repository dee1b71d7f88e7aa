// Package inbox calls the Inbox service, which stores user notifications.
package inbox

import (
	"context"
	"net/url"

	httpclient "ergasia-workers/internal/common/http"
	"ergasia-workers/internal/models"
)

const ServiceName = "inbox"

type Client struct {
	http *httpclient.Client
}

func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

func (c *Client) Create(ctx context.Context, notice models.Notice) (*models.InboxMessage, error) {
	var out models.InboxMessage
	if err := c.http.Post(ctx, "/inbox", notice, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type readRequest struct {
	UserID string `json:"userId"`
}

// MarkRead flags the message read on behalf of its receiver.
func (c *Client) MarkRead(ctx context.Context, userID, inboxID string) error {
	return c.http.Patch(ctx, "/inbox/"+httpclient.Segment(inboxID)+"/read", readRequest{UserID: userID}, nil)
}

func (c *Client) ListByUser(ctx context.Context, userID string) ([]models.InboxMessage, error) {
	var out []models.InboxMessage
	if err := c.http.Get(ctx, "/inbox", url.Values{"userId": {userID}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
