package createsubmission

type Input struct {
	ActorID string `json:"actorId"`
	JobID   string `json:"jobId"`
	// File arrives base64 encoded in the job variables.
	File     []byte `json:"file"`
	FileName string `json:"fileName"`
	Message  string `json:"message"`
}

type Output struct {
	SubmissionID     string `json:"submissionId"`
	SubmissionStatus string `json:"submissionStatus"`
}
