package applytojob

import "time"

type Input struct {
	ActorID string `json:"actorId"`
	JobID   string `json:"jobId"`
}

type Output struct {
	Applied        bool      `json:"applied"`
	AlreadyApplied bool      `json:"alreadyApplied"`
	AppliedAt      time.Time `json:"appliedAt,omitempty"`
}
