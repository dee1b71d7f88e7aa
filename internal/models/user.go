package models

// User is the profile snapshot the services embed in rosters, applier lists
// and submissions.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}
