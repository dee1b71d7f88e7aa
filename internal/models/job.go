// Package models holds the request and response shapes exchanged with the
// backend services. Status values are closed sets parsed at the boundary.
package models

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus is the job lifecycle: Start -> Ongoing -> Finished.
type JobStatus string

const (
	JobStatusStart    JobStatus = "Start"
	JobStatusOngoing  JobStatus = "Ongoing"
	JobStatusFinished JobStatus = "Finished"
)

// ParseJobStatus accepts the canonical names case-insensitively.
func ParseJobStatus(raw string) (JobStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "start":
		return JobStatusStart, nil
	case "ongoing":
		return JobStatusOngoing, nil
	case "finished":
		return JobStatusFinished, nil
	default:
		return "", fmt.Errorf("unknown job status %q", raw)
	}
}

// Next reports the only status a job may move to from s.
func (s JobStatus) Next() (JobStatus, bool) {
	switch s {
	case JobStatusStart:
		return JobStatusOngoing, true
	case JobStatusOngoing:
		return JobStatusFinished, true
	default:
		return "", false
	}
}

type JobTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Job struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"jobName"`
	Description []string  `json:"jobDescription"`
	Tags        []JobTag  `json:"jobTags"`
	Salary      int64     `json:"jobSalary"`
	Slots       int       `json:"jobSlots"`
	Status      JobStatus `json:"jobStatus"`
	Rating      float64   `json:"jobRating"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OwnedBy reports whether userID posted the job.
func (j *Job) OwnedBy(userID string) bool {
	return j != nil && j.OwnerID == userID
}
