package finishjob

import "ergasia-workers/internal/models"

type Input struct {
	ActorID string `json:"actorId"`
	JobID   string `json:"jobId"`
}

type Output struct {
	JobStatus      models.JobStatus `json:"jobStatus"`
	Transfers      int              `json:"transfers"`
	FinishReplayed bool             `json:"finishReplayed"`
}
