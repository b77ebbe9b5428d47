package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/baharkarakas/averulo-backend/internal/metrics"
	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/obs"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

// Settlement is a provider-confirmed successful charge.
type Settlement struct {
	Reference string
	BookingID string
	Amount    int64 // minor units; 0 falls back to the amount fixed at init
	Currency  string
	Raw       json.RawMessage
}

type SettleResult struct {
	Booking models.Booking
	Payment models.Payment
	// Created is false when the ledger already held this reference.
	Created bool
}

// Reconciler is the only writer of settlement outcomes. Both the webhook and the
// verify path go through Settle.
type Reconciler struct {
	store    repo.Store
	notes    *Notifications
	currency string
	log      *slog.Logger
}

func NewReconciler(store repo.Store, notes *Notifications, defaultCurrency string, log *slog.Logger) *Reconciler {
	return &Reconciler{store: store, notes: notes, currency: defaultCurrency, log: log}
}

// Settle marks the booking paid and records the ledger row in one transaction.
// It never short-circuits on an existing ledger row: the booking write is repeated
// so a prior partial failure converges. Safe to call any number of times,
// concurrently, for the same reference.
func (r *Reconciler) Settle(ctx context.Context, s Settlement, source string) (SettleResult, error) {
	ctx, span := obs.Tracer().Start(ctx, "reconcile.settle")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.reference", s.Reference),
		attribute.String("booking.id", s.BookingID),
		attribute.String("settle.source", source),
	)

	var (
		res   SettleResult
		prior models.BookingStatus
	)
	err := r.store.WithTx(ctx, func(tx repo.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, s.BookingID)
		if err != nil {
			return notFound("booking", err)
		}
		prior = b.Status

		amount, currency := s.Amount, s.Currency
		if amount == 0 && b.Amount != nil {
			amount = *b.Amount
		}
		if currency == "" && b.Currency != nil {
			currency = *b.Currency
		}
		if currency == "" {
			currency = r.currency
		}

		if b, err = tx.MarkBookingPaid(ctx, b.ID); err != nil {
			return fmt.Errorf("mark booking paid: %w", err)
		}
		p, created, err := tx.RecordSettlement(ctx, models.Payment{
			Reference: s.Reference,
			BookingID: b.ID,
			Amount:    amount,
			Currency:  currency,
			Status:    models.PaymentSuccess,
			Raw:       s.Raw,
		})
		if err != nil {
			return fmt.Errorf("record settlement: %w", err)
		}
		if created {
			bid := b.ID
			if err := tx.CreateAudit(ctx, models.AuditLog{
				EntityType: "booking",
				EntityID:   &bid,
				Action:     "payment_settled",
				Details: map[string]any{
					"reference": s.Reference,
					"amount":    amount,
					"currency":  currency,
					"source":    source,
				},
			}); err != nil {
				return fmt.Errorf("audit settlement: %w", err)
			}
		}
		res = SettleResult{Booking: b, Payment: p, Created: created}
		return nil
	})
	if err != nil {
		metrics.Settlements.WithLabelValues(source, "error").Inc()
		span.SetStatus(codes.Error, err.Error())
		return SettleResult{}, err
	}

	if prior == models.BookingRejected || prior == models.BookingCancelled {
		r.log.Warn("payment settled over closed booking", "ref", s.Reference, "booking_id", res.Booking.ID, "prior_status", prior)
	}
	if res.Created {
		metrics.Settlements.WithLabelValues(source, "recorded").Inc()
		r.log.Info("payment settled", "ref", s.Reference, "booking_id", res.Booking.ID, "source", source)
		r.notes.paymentSucceeded(res.Booking, res.Payment)
	} else {
		metrics.Settlements.WithLabelValues(source, "duplicate").Inc()
		r.log.Debug("settlement already recorded", "ref", s.Reference, "booking_id", res.Booking.ID, "source", source)
	}
	span.SetAttributes(attribute.Bool("settle.created", res.Created))
	return res, nil
}
