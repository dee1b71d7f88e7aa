package acceptinvitation

type Input struct {
	ActorID      string `json:"actorId"`
	InvitationID string `json:"invitationId"`
}

type Output struct {
	JobID        string `json:"jobId"`
	FreelancerID string `json:"freelancerId"`
	Appended     bool   `json:"appended"`
}
