package contact

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/astrobite/storefront/internal/config"
	"github.com/astrobite/storefront/pkg/logger"
)

const maxMessageLength = 4000

// Mailer delivers a contact-form message to the shop inbox.
type Mailer interface {
	Send(ctx context.Context, fromName, fromEmail, body string) error
}

// SendGridMailer delivers contact mail through the SendGrid v3 API. The
// From address is a fixed no-reply sender; the visitor's address goes in
// Reply-To so staff can answer directly.
type SendGridMailer struct {
	client   *sendgrid.Client
	from     string
	fromName string
	to       string
	subject  string
}

var _ Mailer = (*SendGridMailer)(nil)

func NewSendGridMailer(cfg config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(cfg.SendGridKey),
		from:     cfg.FromAddress,
		fromName: cfg.FromName,
		to:       cfg.ContactTo,
		subject:  "New contact form message",
	}
}

func (m *SendGridMailer) Send(ctx context.Context, fromName, fromEmail, body string) error {
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.fromName, m.from),
		m.subject,
		sgmail.NewEmail("", m.to),
		body,
		"",
	)
	msg.SetReplyTo(sgmail.NewEmail(fromName, fromEmail))

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned %d", resp.StatusCode)
	}
	return nil
}

// Service validates and forwards contact-form submissions.
type Service struct {
	mailer Mailer
	log    *logger.Logger
}

func New(mailer Mailer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("contact-service")
	}
	return &Service{mailer: mailer, log: log}
}

// Submit validates the sender fields and relays the message. The visitor
// sees only success or a generic failure; delivery details are logged.
func (s *Service) Submit(ctx context.Context, name, email, message string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	message = strings.TrimSpace(message)

	if name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("a valid email address is required")
	}
	if message == "" {
		return fmt.Errorf("message is required")
	}
	if len(message) > maxMessageLength {
		return fmt.Errorf("message must be at most %d characters", maxMessageLength)
	}

	if err := s.mailer.Send(ctx, name, email, message); err != nil {
		s.log.WithError(err).Error("contact mail delivery failed")
		return fmt.Errorf("could not send message, please try again later")
	}

	s.log.WithField("from", email).Info("contact message relayed")
	return nil
}
