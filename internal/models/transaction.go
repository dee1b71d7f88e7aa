package models

import "time"

// Transaction is one escrow movement recorded by the JobTransaction service.
type Transaction struct {
	ID        string    `json:"id"`
	JobID     string    `json:"jobId"`
	UserID    string    `json:"userId,omitempty"`
	Amount    int64     `json:"amount"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

// Payout is the result of releasing a finished job's escrow to its roster.
type Payout struct {
	JobID     string        `json:"jobId"`
	Transfers []Transaction `json:"transfers"`
}
