package mailer

import "context"

// Sender delivers one outbound email. Like the SMS sender it may block and
// is only ever invoked from a dispatch worker.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
