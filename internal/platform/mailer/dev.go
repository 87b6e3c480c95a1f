package mailer

import (
	"context"

	"github.com/diagnosis/luxsuv-identity/pkg/logger"
)

// DevSender logs messages instead of sending them.
type DevSender struct{}

func NewDevSender() *DevSender {
	return &DevSender{}
}

func (d *DevSender) Send(ctx context.Context, to, subject, body string) error {
	logger.InfoContext(ctx, "📧 [DEV MAIL]",
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
