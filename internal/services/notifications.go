package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/averulo-backend/internal/metrics"
	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/notify"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
	"github.com/baharkarakas/averulo-backend/internal/worker"
)

const notifyTimeout = 15 * time.Second

// Notifications sends booking and payment events after the state change has been
// committed, to the counterparty of whoever caused the change. Delivery runs on the worker pool; failures are logged and counted and
// never reach the caller. A nil *Notifications drops everything.
type Notifications struct {
	n     notify.Notifier
	users repo.Users
	props repo.Properties
	wp    *worker.Pool
	log   *slog.Logger
}

func NewNotifications(n notify.Notifier, users repo.Users, props repo.Properties, wp *worker.Pool, log *slog.Logger) *Notifications {
	return &Notifications{n: n, users: users, props: props, wp: wp, log: log}
}

func (d *Notifications) bookingEvent(kind notify.Kind, b models.Booking) {
	d.dispatch(kind, b, func(ev *notify.Event) {
		ev.Status = string(b.Status)
	})
}

func (d *Notifications) paymentSucceeded(b models.Booking, p models.Payment) {
	d.dispatch(notify.PaymentSucceeded, b, func(ev *notify.Event) {
		ev.Status = string(b.Status)
		ev.Amount = p.Amount
		ev.Currency = p.Currency
		ev.Reference = p.Reference
	})
}

func (d *Notifications) dispatch(kind notify.Kind, b models.Booking, fill func(*notify.Event)) {
	if d == nil || d.n == nil {
		return
	}
	ok := d.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		ev := notify.Event{
			Kind:      kind,
			BookingID: b.ID,
			Start:     b.StartDate.Format(time.DateOnly),
			End:       b.EndDate.Format(time.DateOnly),
		}
		if p, err := d.props.GetByID(ctx, b.PropertyID); err == nil {
			ev.PropertyTitle = p.Title
		}
		if g, err := d.users.GetByID(ctx, b.GuestID); err == nil {
			ev.GuestEmail = g.Email
		}
		ev.Recipient = ev.GuestEmail
		if toHost(kind) {
			ev.Recipient = ""
			if h, err := d.users.GetByID(ctx, b.HostID); err == nil {
				ev.Recipient = h.Email
			}
		}
		fill(&ev)

		if err := d.n.Notify(ctx, ev); err != nil {
			metrics.NotificationsFailed.Inc()
			d.log.Warn("notification failed", "kind", kind, "booking_id", b.ID, "err", err)
		}
	})
	if !ok {
		metrics.NotificationsFailed.Inc()
		d.log.Warn("notification dropped", "kind", kind, "booking_id", b.ID)
	}
}

// toHost reports whether kind goes to the host. Each event goes to the party that
// did not cause it: guests create and cancel, hosts approve and reject.
func toHost(kind notify.Kind) bool {
	return kind == notify.BookingCreated || kind == notify.BookingCancelled
}
