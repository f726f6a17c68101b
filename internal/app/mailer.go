package app

import (
	"context"

	"github.com/astrobite/storefront/pkg/logger"
)

// noopMailer stands in when no SendGrid key is configured. Messages are
// logged and dropped so local development works without credentials.
type noopMailer struct {
	log *logger.Logger
}

func (m noopMailer) Send(_ context.Context, fromName, fromEmail, body string) error {
	m.log.WithField("from", fromEmail).
		WithField("name", fromName).
		WithField("bytes", len(body)).
		Warn("mailer not configured, dropping contact message")
	return nil
}
