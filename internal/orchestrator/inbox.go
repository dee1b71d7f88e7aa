package orchestrator

import (
	"context"
	"strings"

	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/models"
)

func (o *Orchestrator) ListInbox(ctx context.Context, actor identity.Actor) ([]models.InboxMessage, error) {
	var out []models.InboxMessage
	err := o.run(ctx, "ListInbox", actor, "", func(ctx context.Context, s *sagaRun) error {
		msgs, err := o.inbox.ListByUser(ctx, actor.UserID)
		if err != nil {
			return err
		}
		out = msgs
		return nil
	})
	return out, err
}

// MarkInboxRead flags one of the actor's messages read.
func (o *Orchestrator) MarkInboxRead(ctx context.Context, actor identity.Actor, inboxID string) error {
	return o.run(ctx, "MarkInboxRead", actor, "", func(ctx context.Context, s *sagaRun) error {
		if strings.TrimSpace(inboxID) == "" {
			return errors.NewValidationError("inboxId is required")
		}
		return o.inbox.MarkRead(ctx, actor.UserID, inboxID)
	})
}
