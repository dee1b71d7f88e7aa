package startjob

import "ergasia-workers/internal/models"

type Input struct {
	ActorID string `json:"actorId"`
	JobID   string `json:"jobId"`
	// Amount is in the smallest currency unit.
	Amount int64 `json:"amount"`
}

type Output struct {
	JobStatus     models.JobStatus `json:"jobStatus"`
	TransactionID string           `json:"transactionId,omitempty"`
	StartReplayed bool             `json:"startReplayed"`
}
