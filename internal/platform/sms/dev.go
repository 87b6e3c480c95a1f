package sms

import (
	"context"

	"github.com/diagnosis/luxsuv-identity/pkg/logger"
)

// DevSender logs messages instead of calling the gateway.
type DevSender struct{}

func NewDevSender() *DevSender {
	return &DevSender{}
}

func (d *DevSender) Send(ctx context.Context, to, body string) error {
	logger.InfoContext(ctx, "📱 [DEV SMS]",
		"to", to,
		"body", body,
	)
	return nil
}
