package sms

import "context"

// Sender delivers one outbound SMS. Implementations may block on a slow
// gateway; callers run them from a dispatch worker, never from a request
// handler.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}
