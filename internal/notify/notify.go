// Package notify defines the outbound notification boundary.
//
// The engine never talks to a mail transport directly; notification actions
// hand a Notification to a Notifier. SMTPNotifier delivers over SMTP via
// go-mail, LogNotifier records deliveries without sending (the default when
// no SMTP host is configured, and the implementation tests inject).
package notify

import (
	"context"
	"fmt"

	mail "github.com/go-mail/mail/v2"
	"github.com/rs/zerolog"
)

// Notification is one outbound message produced by a notification action.
type Notification struct {
	TicketID string
	To       []string
	Subject  string
	Body     string
}

// Notifier delivers notifications produced during action execution.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// SMTPNotifier delivers notifications over SMTP.
type SMTPNotifier struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTPNotifier creates a notifier for the given SMTP endpoint.
// Password may be empty for unauthenticated relays.
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: mail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send delivers a single notification. Recipients are required; an empty
// recipient list is an error rather than a silent drop.
func (s *SMTPNotifier) Send(ctx context.Context, n Notification) error {
	if len(n.To) == 0 {
		return fmt.Errorf("notification for ticket %s has no recipients", n.TicketID)
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", n.To...)
	m.SetHeader("Subject", n.Subject)
	if n.TicketID != "" {
		m.SetHeader("X-Ticket-ID", n.TicketID)
	}
	m.SetBody("text/plain", n.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// LogNotifier records notifications to the log instead of delivering them.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the notification and reports success.
func (l *LogNotifier) Send(ctx context.Context, n Notification) error {
	l.log.Info().
		Str("ticket_id", n.TicketID).
		Strs("to", n.To).
		Str("subject", n.Subject).
		Msg("notification (log-only delivery)")
	return nil
}
