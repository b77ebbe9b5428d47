package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/averulo-backend/internal/models"
)

type paymentsRepo struct{ q querier }

const paymentCols = `p.id, p.reference, p.booking_id, p.amount, p.currency, p.status, p.raw, p.created_at`

func scanPayment(row interface{ Scan(...any) error }) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.Reference, &p.BookingID, &p.Amount, &p.Currency, &p.Status, &p.Raw, &p.CreatedAt)
	return p, err
}

func (r *paymentsRepo) RecordSettlement(ctx context.Context, p models.Payment) (models.Payment, bool, error) {
	return recordSettlement(ctx, r.q, p)
}

// recordSettlement leans on the UNIQUE(reference) constraint: a concurrent insert for the
// same reference waits for the other transaction and then takes the DO NOTHING branch.
func recordSettlement(ctx context.Context, q querier, p models.Payment) (models.Payment, bool, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PaymentSuccess
	}
	row, err := scanPayment(q.QueryRow(ctx,
		`INSERT INTO payments AS p (id, reference, booking_id, amount, currency, status, raw)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (reference) DO NOTHING
		 RETURNING `+paymentCols,
		p.ID, p.Reference, p.BookingID, p.Amount, p.Currency, p.Status, p.Raw,
	))
	if err == nil {
		return row, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Payment{}, false, err
	}
	existing, err := scanPayment(q.QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payments p WHERE p.reference=$1`, p.Reference))
	return existing, false, mapErr(err)
}

func (r *paymentsRepo) Exists(ctx context.Context, ref string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE reference=$1)`, ref).Scan(&exists)
	return exists, err
}

func (r *paymentsRepo) ListByGuest(ctx context.Context, guestID string) ([]models.Payment, error) {
	return collectPayments(r.q.Query(ctx,
		`SELECT `+paymentCols+`
		   FROM payments p
		   JOIN bookings b ON b.id = p.booking_id
		  WHERE b.guest_id=$1
		  ORDER BY p.created_at DESC`, guestID))
}

func (r *paymentsRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.Payment, error) {
	return collectPayments(r.q.Query(ctx,
		`SELECT `+paymentCols+` FROM payments p WHERE p.booking_id=$1 ORDER BY p.created_at DESC`, bookingID))
}

func collectPayments(rows pgx.Rows, err error) ([]models.Payment, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
