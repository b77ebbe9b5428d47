// Package notify delivers booking and payment events to guests and hosts.
// Every implementation is best-effort: callers log failures and move on.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

type Kind string

const (
	BookingCreated   Kind = "booking.created"
	BookingApproved  Kind = "booking.approved"
	BookingRejected  Kind = "booking.rejected"
	BookingCancelled Kind = "booking.cancelled"
	PaymentSucceeded Kind = "payment.succeeded"
)

// Event is what a notifier needs to render a message. Recipient is an e-mail address.
type Event struct {
	Kind          Kind   `json:"kind"`
	BookingID     string `json:"booking_id"`
	Recipient     string `json:"recipient"`
	GuestEmail    string `json:"guest_email,omitempty"`
	PropertyTitle string `json:"property_title"`
	Start         string `json:"start"` // YYYY-MM-DD
	End           string `json:"end"`
	Status        string `json:"status,omitempty"`
	Amount        int64  `json:"amount,omitempty"` // minor units
	Currency      string `json:"currency,omitempty"`
	Reference     string `json:"reference,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Mailer sends one HTML e-mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log records every event at info level.
type Log struct {
	Log *slog.Logger
}

func (l Log) Notify(_ context.Context, ev Event) error {
	l.Log.Info("notification", "kind", ev.Kind, "booking_id", ev.BookingID, "to", ev.Recipient)
	return nil
}
