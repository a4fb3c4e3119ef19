// Package notify delivers rendered notifications over push and email.
package notify

import "context"

// EmailResult is the outcome of one email send. Error is empty on success.
type EmailResult struct {
	Sent  bool
	Error string
}

// Pusher delivers a push notification to every device of an account and
// reports whether at least one delivery succeeded.
type Pusher interface {
	SendPush(ctx context.Context, accountID, title, body string) bool
}

// Mailer delivers a plain-text email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, text string) EmailResult
}

// DisabledPusher is used when the push channel is switched off.
type DisabledPusher struct{}

func (DisabledPusher) SendPush(context.Context, string, string, string) bool { return false }

// DisabledMailer is used when the email channel is switched off.
type DisabledMailer struct{}

func (DisabledMailer) SendEmail(context.Context, string, string, string) EmailResult {
	return EmailResult{Sent: false, Error: "email channel disabled"}
}
