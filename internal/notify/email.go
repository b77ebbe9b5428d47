package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
)

// Email renders events into messages and hands them to a Mailer.
type Email struct {
	m Mailer
}

func NewEmail(m Mailer) *Email { return &Email{m: m} }

func (e *Email) Notify(ctx context.Context, ev Event) error {
	if ev.Recipient == "" {
		return fmt.Errorf("notify %s: no recipient", ev.Kind)
	}
	subject, body := render(ev)
	return e.m.Send(ctx, ev.Recipient, subject, body)
}

func render(ev Event) (subject, body string) {
	title := html.EscapeString(ev.PropertyTitle)
	switch ev.Kind {
	case BookingCreated:
		subject = fmt.Sprintf("New booking request for %s", ev.PropertyTitle)
		body = fmt.Sprintf("<p>You have a new booking from <b>%s</b> for <b>%s</b>.<br/>Dates: %s → %s</p>",
			html.EscapeString(ev.GuestEmail), title, ev.Start, ev.End)
	case BookingCancelled:
		subject = fmt.Sprintf("Booking cancelled for %s", ev.PropertyTitle)
		body = fmt.Sprintf("<p><b>%s</b> cancelled their booking for <b>%s</b>.<br/>Dates: %s → %s</p>",
			html.EscapeString(ev.GuestEmail), title, ev.Start, ev.End)
	case PaymentSucceeded:
		subject = fmt.Sprintf("Payment successful for %s", ev.PropertyTitle)
		body = fmt.Sprintf("<p>Your payment of <b>%s %s</b> for <b>%s</b> succeeded.<br/>Ref: %s</p>",
			FormatMinor(ev.Amount), ev.Currency, title, html.EscapeString(ev.Reference))
	default:
		subject = fmt.Sprintf("Your booking was %s", ev.Status)
		body = fmt.Sprintf("<p>Your booking for <b>%s</b> (%s → %s) is now <b>%s</b>.</p>",
			title, ev.Start, ev.End, ev.Status)
	}
	return subject, body
}

// FormatMinor prints a minor-unit amount with two decimals.
func FormatMinor(v int64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// LogMailer writes mail to the log instead of sending it. Used when no mail provider
// is configured.
type LogMailer struct {
	Log *slog.Logger
}

func (l LogMailer) Send(_ context.Context, to, subject, body string) error {
	l.Log.Info("mail (dev)", "to", to, "subject", subject, "body", body)
	return nil
}
