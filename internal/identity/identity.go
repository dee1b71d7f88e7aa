// Package identity resolves the acting user of a saga. Authentication happens
// upstream; a worker only receives the already verified user id.
package identity

import (
	"strings"

	"ergasia-workers/internal/common/errors"
)

// Actor is the user a saga runs on behalf of.
type Actor struct {
	UserID string
}

// System acts for background reconciliation.
var System = Actor{UserID: "system:reconciler"}

// Parse returns the actor for raw, which must be a non-empty user id.
func Parse(raw string) (Actor, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return Actor{}, errors.NewForbiddenError("missing acting user id")
	}
	return Actor{UserID: id}, nil
}

// Is reports whether the actor is userID.
func (a Actor) Is(userID string) bool {
	return a.UserID != "" && a.UserID == userID
}
