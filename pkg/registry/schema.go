package registry

// ActivityRegistry is the catalogue of job types served by the worker
// manager. The modeler tooling reads it to offer service tasks and their
// input variables.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

type Activity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Category    string `json:"category"`
	TaskType    string `json:"taskType"`
	// InputSchema is the JSON schema the worker validates job variables
	// against.
	InputSchema map[string]interface{} `json:"inputSchema"`
	ErrorCodes  []string               `json:"errorCodes"`
	Timeout     string                 `json:"timeout"`
	Retries     int                    `json:"retries"`
	// NonIdempotent workers never ask Zeebe to retry a failed job.
	NonIdempotent bool     `json:"nonIdempotent,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}
