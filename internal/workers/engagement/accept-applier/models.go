package acceptapplier

type Input struct {
	ActorID      string `json:"actorId"`
	JobID        string `json:"jobId"`
	FreelancerID string `json:"freelancerId"`
}

type Output struct {
	ApplierAccepted bool `json:"applierAccepted"`
	Appended        bool `json:"appended"`
}
