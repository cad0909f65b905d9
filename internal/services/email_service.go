package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// EmailTransport hands a rendered message to an outbound mail provider
type EmailTransport interface {
	Send(ctx context.Context, toEmail, toName, subject, body string) error
}

// EmailService sends plain-text email through SendGrid
type EmailService struct {
	apiKey    string
	host      string
	fromEmail string
	fromName  string
	timeout   time.Duration
}

// EmailOption customizes an EmailService
type EmailOption func(*EmailService)

// WithSendGridHost points the service at a different API host (used by tests)
func WithSendGridHost(host string) EmailOption {
	return func(s *EmailService) { s.host = host }
}

func NewEmailService(apiKey, fromEmail, fromName string, timeout time.Duration, opts ...EmailOption) *EmailService {
	s := &EmailService{
		apiKey:    apiKey,
		host:      sendGridHost,
		fromEmail: fromEmail,
		fromName:  fromName,
		timeout:   timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// client builds a fresh SendGrid client per message; the client carries the
// request body, so it cannot be shared between concurrent sends.
func (s *EmailService) client() *sendgrid.Client {
	request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	request.Method = rest.Post
	return &sendgrid.Client{Request: request}
}

// Send delivers one message. Any non-2xx response or transport error,
// including the send timeout, is reported as ErrDispatchFailed.
func (s *EmailService) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewV3MailInit(from, subject, to, mail.NewContent("text/plain", body))

	response, err := s.client().SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("%w: send to %s: %w", ErrDispatchFailed, toEmail, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("%w: send to %s: status %d: %s", ErrDispatchFailed, toEmail, response.StatusCode, response.Body)
	}
	return nil
}

// LogTransport records messages instead of sending them.
// It is used when email delivery is disabled.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	t.logger.InfoContext(ctx, "mock email - not sent",
		"to", toEmail,
		"subject", subject,
		"body", body,
	)
	return nil
}
