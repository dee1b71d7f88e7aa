package models

import "time"

type InboxCategory string

const (
	InboxInvitation  InboxCategory = "invitation"
	InboxApplication InboxCategory = "application"
	InboxSubmission  InboxCategory = "submission"
	InboxJob         InboxCategory = "job"
)

type InboxAction string

const (
	ActionRequest  InboxAction = "request"
	ActionAccepted InboxAction = "accepted"
	ActionRejected InboxAction = "rejected"
	ActionStarted  InboxAction = "started"
	ActionFinished InboxAction = "finished"
)

// InboxMessage is an advisory notification owned by the Inbox service.
type InboxMessage struct {
	ID         string        `json:"id"`
	SenderID   string        `json:"senderId"`
	ReceiverID string        `json:"receiverId"`
	JobID      string        `json:"jobId,omitempty"`
	Category   InboxCategory `json:"category"`
	Action     InboxAction   `json:"action"`
	Message    string        `json:"message,omitempty"`
	Read       bool          `json:"read"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Notice is what a saga asks to be delivered after its authoritative write.
type Notice struct {
	SenderID   string        `json:"senderId"`
	ReceiverID string        `json:"receiverId"`
	JobID      string        `json:"jobId,omitempty"`
	Category   InboxCategory `json:"category"`
	Action     InboxAction   `json:"action"`
	Message    string        `json:"message,omitempty"`
}
