package orchestrator

import (
	"context"

	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/common/metrics"
	"ergasia-workers/internal/models"
)

// Notifier delivers advisory inbox messages. It runs only after a saga's
// authoritative write and never reports failure to the caller.
type Notifier struct {
	inbox     InboxService
	publisher Publisher
	logger    logger.Logger
}

func NewNotifier(inbox InboxService, publisher Publisher, log logger.Logger) *Notifier {
	return &Notifier{
		inbox:     inbox,
		publisher: publisher,
		logger:    log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// Notify stores the message in the receiver's inbox, then fans it out when a
// publisher is configured.
func (n *Notifier) Notify(ctx context.Context, notice models.Notice) {
	category := string(notice.Category)
	fields := map[string]interface{}{
		"receiverId": notice.ReceiverID,
		"jobId":      notice.JobID,
		"category":   category,
		"action":     string(notice.Action),
	}

	if notice.ReceiverID == "" || notice.ReceiverID == notice.SenderID {
		metrics.NotificationsTotal.WithLabelValues(category, "skipped").Inc()
		return
	}

	msg, err := n.inbox.Create(ctx, notice)
	if err != nil {
		fields["error"] = err.Error()
		n.logger.Warn("Inbox notification failed", fields)
		metrics.NotificationsTotal.WithLabelValues(category, "failed").Inc()
		return
	}
	metrics.NotificationsTotal.WithLabelValues(category, "sent").Inc()

	if n.publisher == nil || msg == nil {
		return
	}
	if err := n.publisher.Publish(ctx, *msg); err != nil {
		fields["error"] = err.Error()
		n.logger.Warn("Inbox fan-out failed", fields)
		metrics.NotificationsTotal.WithLabelValues(category, "fanout_failed").Inc()
	}
}

// notifyRoster sends one notice per freelancer on the job's roster.
func (o *Orchestrator) notifyRoster(ctx context.Context, s *sagaRun, senderID, jobID string, action models.InboxAction) {
	roster, err := o.roster.ListAccepted(ctx, jobID)
	if err != nil {
		s.logger.Warn("Could not list roster for notification", map[string]interface{}{"error": err.Error()})
		metrics.NotificationsTotal.WithLabelValues(string(models.InboxJob), "failed").Inc()
		return
	}
	for _, user := range roster {
		o.notifier.Notify(ctx, models.Notice{
			SenderID:   senderID,
			ReceiverID: user.ID,
			JobID:      jobID,
			Category:   models.InboxJob,
			Action:     action,
		})
	}
}
