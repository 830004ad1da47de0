package notify

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestSMTPNotifier_RequiresRecipients(t *testing.T) {
	n := NewSMTPNotifier("mail.example.com", 587, "user", "pass", "fg@example.com")

	err := n.Send(context.Background(), Notification{
		TicketID: "T-1",
		Subject:  "no recipients",
	})
	if err == nil {
		t.Errorf("Send() error = nil, want error for empty recipient list")
	}
}

func TestLogNotifier_AlwaysSucceeds(t *testing.T) {
	n := NewLogNotifier(zerolog.Nop())

	err := n.Send(context.Background(), Notification{
		TicketID: "T-1",
		To:       []string{"a@example.com"},
		Subject:  "hello",
		Body:     "world",
	})
	if err != nil {
		t.Errorf("Send() error = %v, want nil", err)
	}
}
