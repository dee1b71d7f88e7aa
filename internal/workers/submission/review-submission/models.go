package reviewsubmission

type Input struct {
	ActorID       string `json:"actorId"`
	SubmissionID  string `json:"submissionId"`
	Decision      string `json:"decision"`
	RejectMessage string `json:"rejectMessage"`
}

type Output struct {
	SubmissionID     string `json:"submissionId"`
	SubmissionStatus string `json:"submissionStatus"`
}
