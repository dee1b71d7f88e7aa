package rejectinvitation

type Input struct {
	ActorID      string `json:"actorId"`
	InvitationID string `json:"invitationId"`
}

type Output struct {
	InvitationRejected bool `json:"invitationRejected"`
}
