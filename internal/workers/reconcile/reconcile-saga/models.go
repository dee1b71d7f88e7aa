package reconcilesaga

// Input names a single record to replay, or leaves RecordID empty for a pass
// over the oldest open records.
type Input struct {
	RecordID string `json:"recordId"`
	Limit    int    `json:"limit"`
}

type Output struct {
	Outcome   string `json:"outcome,omitempty"`
	Scanned   int    `json:"scanned"`
	Resolved  int    `json:"resolved"`
	Dismissed int    `json:"dismissed"`
	Pending   int    `json:"pending"`
	Manual    int    `json:"manual"`
}
