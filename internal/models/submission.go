package models

import (
	"fmt"
	"strings"
	"time"
)

// SubmissionStatus moves once, from Waiting to a terminal review decision.
type SubmissionStatus string

const (
	SubmissionWaiting  SubmissionStatus = "Waiting"
	SubmissionAccepted SubmissionStatus = "Accepted"
	SubmissionRejected SubmissionStatus = "Rejected"
)

func ParseSubmissionStatus(raw string) (SubmissionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "waiting":
		return SubmissionWaiting, nil
	case "accepted", "accept":
		return SubmissionAccepted, nil
	case "rejected", "reject":
		return SubmissionRejected, nil
	default:
		return "", fmt.Errorf("unknown submission status %q", raw)
	}
}

// Terminal reports whether s is a review decision.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionAccepted || s == SubmissionRejected
}

type Submission struct {
	ID            string           `json:"id"`
	JobID         string           `json:"jobId"`
	User          User             `json:"user"`
	Message       string           `json:"message"`
	FileName      string           `json:"fileName,omitempty"`
	Status        SubmissionStatus `json:"status"`
	RejectMessage string           `json:"rejectMessage,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// NewSubmission is the create payload. File travels base64 encoded through
// encoding/json.
type NewSubmission struct {
	JobID    string `json:"jobId"`
	User     User   `json:"user"`
	File     []byte `json:"file"`
	FileName string `json:"fileName,omitempty"`
	Message  string `json:"message"`
}
