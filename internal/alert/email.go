// Package alert tells operators about reconciliation records and fans inbox
// events out to downstream consumers.
package alert

import (
	"context"
	"fmt"
	"strings"

	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/reconcile"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailSender is satisfied by the SES wrapper.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// EmailAlerter mails the operator list through SES.
type EmailAlerter struct {
	sender EmailSender
	from   string
	to     []string
}

func NewEmailAlerter(sender EmailSender, from string, to []string) *EmailAlerter {
	return &EmailAlerter{sender: sender, from: from, to: to}
}

func (a *EmailAlerter) ReconciliationOpened(ctx context.Context, rec reconcile.Record) error {
	subject := fmt.Sprintf("[reconcile] %s opened for job %s", rec.Kind, rec.JobID)
	return a.send(ctx, subject, describe(rec, ""))
}

func (a *EmailAlerter) ReconciliationEscalated(ctx context.Context, rec reconcile.Record, reason string) error {
	subject := fmt.Sprintf("[reconcile] %s for job %s needs manual action", rec.Kind, rec.JobID)
	return a.send(ctx, subject, describe(rec, reason))
}

func (a *EmailAlerter) send(ctx context.Context, subject, body string) error {
	input := &ses.SendEmailInput{
		Source:      awssdk.String(a.from),
		Destination: &types.Destination{ToAddresses: a.to},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subject), Charset: awssdk.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(body), Charset: awssdk.String("UTF-8")},
			},
		},
	}
	if _, err := a.sender.SendEmail(ctx, input); err != nil {
		return errors.NewNotificationSendFailedError("email", err)
	}
	return nil
}

func describe(rec reconcile.Record, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Record:   %s\n", rec.ID)
	fmt.Fprintf(&b, "Kind:     %s\n", rec.Kind)
	fmt.Fprintf(&b, "Status:   %s\n", rec.Status)
	fmt.Fprintf(&b, "Job:      %s\n", rec.JobID)
	if rec.SubjectID != "" {
		fmt.Fprintf(&b, "Subject:  %s\n", rec.SubjectID)
	}
	if rec.Amount != 0 {
		fmt.Fprintf(&b, "Amount:   %d\n", rec.Amount)
	}
	fmt.Fprintf(&b, "Attempts: %d\n", rec.Attempts)
	if rec.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", rec.LastError)
	}
	if reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", reason)
	}
	return b.String()
}
