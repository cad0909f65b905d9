package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"returnremind/internal/models"
)

const dateLayout = "2006-01-02"

// Notice is everything needed to render one reminder email
type Notice struct {
	Reminder models.Reminder
	Purchase models.Purchase
	Owner    models.User
}

// Message is a rendered reminder email
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Notifier renders and delivers one reminder
type Notifier interface {
	Dispatch(ctx context.Context, n Notice) error
}

// Dispatcher renders reminder emails and hands them to the transport
type Dispatcher struct {
	transport EmailTransport
	logger    *slog.Logger
}

// NewDispatcher returns a dispatcher. A nil transport means email is disabled:
// messages are logged and dispatch always succeeds.
func NewDispatcher(transport EmailTransport, logger *slog.Logger) *Dispatcher {
	if transport == nil {
		transport = NewLogTransport(logger)
	}
	return &Dispatcher{transport: transport, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, n Notice) error {
	msg, err := Render(n)
	if err != nil {
		return err
	}
	if err := d.transport.Send(ctx, msg.To, msg.ToName, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("reminder %s: %w", n.Reminder.ID, err)
	}
	d.logger.InfoContext(ctx, "email sent", "to", msg.To, "subject", msg.Subject, "reminder_id", n.Reminder.ID)
	return nil
}

// Render builds the subject and plain-text body for a reminder
func Render(n Notice) (Message, error) {
	p := n.Purchase

	var subject, lead string
	switch n.Reminder.Kind {
	case models.SevenDaysBefore:
		subject = "7 days left to return: " + p.ItemName
		lead = "This is a friendly reminder that you have 7 days left to return your purchase."
	case models.OneDayBefore:
		subject = "Last day tomorrow: " + p.ItemName
		lead = "Your return window closes TOMORROW! Don't forget to return your item if needed."
	case models.DeadlineReached:
		subject = "Return deadline TODAY: " + p.ItemName
		lead = "TODAY is the last day to return your purchase. Act now if you need to make a return!"
	default:
		return Message{}, fmt.Errorf("%w: unknown reminder kind %q", ErrInvalidInput, n.Reminder.Kind)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", n.Owner.Name)
	fmt.Fprintf(&body, "%s\n\n", lead)
	body.WriteString("Purchase Details:\n")
	body.WriteString("----------------------------\n")
	fmt.Fprintf(&body, "Item: %s\n", p.ItemName)
	fmt.Fprintf(&body, "Merchant: %s\n", p.MerchantName)
	fmt.Fprintf(&body, "Purchased: %s\n", p.Purchased().Format(dateLayout))
	fmt.Fprintf(&body, "Return Deadline: %s\n", p.Deadline().Format(dateLayout))
	body.WriteString("----------------------------\n\n")
	body.WriteString("Happy shopping!\n")
	body.WriteString("- ReturnRemind\n")

	return Message{
		To:      n.Owner.Email,
		ToName:  n.Owner.Name,
		Subject: subject,
		Body:    body.String(),
	}, nil
}
