package models

import "time"

// Applier is a freelancer's application to a job.
type Applier struct {
	UserID    string        `json:"userId"`
	JobID     string        `json:"jobId"`
	Status    ApplierStatus `json:"status"`
	AppliedAt time.Time     `json:"appliedAt"`
}

type ApplierStatus string

const (
	ApplierPending  ApplierStatus = "Pending"
	ApplierAccepted ApplierStatus = "Accepted"
	ApplierRejected ApplierStatus = "Rejected"
)

// Invitation is an owner's offer of a job to a freelancer.
type Invitation struct {
	ID         string    `json:"id"`
	JobID      string    `json:"jobId"`
	InviterID  string    `json:"inviterId"`
	InviteeID  string    `json:"inviteeId"`
	InvitedAt  time.Time `json:"invitedAt"`
	IsAccepted bool      `json:"isAccepted"`
	IsRejected bool      `json:"isRejected"`
}

// Active reports whether the invitation still blocks a new one for the same
// job and freelancer.
func (i *Invitation) Active() bool {
	return i != nil && !i.IsRejected
}

// Pending reports whether the freelancer has not answered yet.
func (i *Invitation) Pending() bool {
	return i != nil && !i.IsAccepted && !i.IsRejected
}
