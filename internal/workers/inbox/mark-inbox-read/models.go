package markinboxread

type Input struct {
	ActorID string `json:"actorId"`
	InboxID string `json:"inboxId"`
}

type Output struct {
	InboxRead bool `json:"inboxRead"`
}
