package invitefreelancer

type Input struct {
	ActorID      string `json:"actorId"`
	JobID        string `json:"jobId"`
	FreelancerID string `json:"freelancerId"`
}

type Output struct {
	InvitationID string `json:"invitationId"`
}
