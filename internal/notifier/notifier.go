// Package notifier delivers one-time codes and login confirmation links
// to users over email. Delivery outcomes are reported back so the caller
// can persist them alongside the issuing record.
package notifier

import "context"

// Receipt describes a completed delivery attempt.
type Receipt struct {
	MessageID string
	Dev       bool
}

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier sends messages to users. Implementations must not retry
// internally; the caller decides how a failed delivery is surfaced.
type Notifier interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}
